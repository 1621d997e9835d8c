// termclient is a full screen fractal explorer for the terminal.
// Every cell shows two pixels using the upper half block, so the view stays square.
//
//	click   zoom in on the clicked point
//	1 2 3   mandelbrot, tricorn, burning ship
//	r       reset the view
//	s       save the view as a PNG
//	q Esc   quit
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/internal/config"
	"github.com/marben/fractal_explorer/internal/logging"
	"github.com/marben/fractal_explorer/render"
	"github.com/marben/fractal_explorer/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	return newCommand().Execute()
}

func newCommand() *cobra.Command {
	var (
		configPath string
		variant    string
		outDir     string
		logFile    string
		aa         int
	)
	cmd := &cobra.Command{
		Use:           "termclient",
		Short:         "Explore fractals in the terminal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if aa < 1 || aa > render.MaxSupersample {
				return fmt.Errorf("--aa must be in [1, %d], got %d", render.MaxSupersample, aa)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if variant != "" {
				if cfg.Variant, err = fractal.ParseVariant(variant); err != nil {
					return err
				}
			}

			// the screen owns the terminal, so logs go to a file or nowhere
			logger := logging.NewNop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				level, err := logging.ParseLevel(cfg.Log.Level)
				if err != nil {
					return err
				}
				logger = logging.NewWithWriter(f, level, cfg.Log.Format)
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("tcell.NewScreen: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("screen.Init: %w", err)
			}
			defer screen.Fini()

			renderer := cfg.Renderer()
			renderer.Logger = logger
			sess := session.New(cfg.Variant, session.WithZoomScale(cfg.ZoomScale), session.WithRenderer(renderer))
			e := newExplorer(screen, sess, explorerOptions{
				saveSize: cfg.Size,
				saveAA:   aa,
				outDir:   outDir,
				logger:   logger,
			})
			e.run()
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&variant, "variant", "v", "", "mandelbrot, tricorn or burning-ship")
	f.StringVarP(&outDir, "out", "o", ".", "directory for saved PNG files")
	f.StringVar(&logFile, "log", "", "append logs to this file")
	f.IntVar(&aa, "aa", 2, fmt.Sprintf("supersampling of saved images, 1 to %d", render.MaxSupersample))
	return cmd
}
