// cliclient renders one view of a fractal and saves it as a PNG file.
// Clicks given with --zoom are replayed in order, as if made in the explorer.
package main

import (
	"fmt"
	"image"
	"log"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"

	fractal "github.com/marben/fractal_explorer"
	"github.com/marben/fractal_explorer/internal/config"
	"github.com/marben/fractal_explorer/internal/logging"
	"github.com/marben/fractal_explorer/render"
	"github.com/marben/fractal_explorer/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(args []string) error {
	cmd := newCommand()
	cmd.SetArgs(args)
	return cmd.Execute()
}

type options struct {
	configPath string
	variant    string
	landmark   string
	size       int
	aa         int
	workers    int
	zooms      []string
	output     string
	verbose    bool
}

func newCommand() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "cliclient",
		Short:         "Render a fractal view to a PNG file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			return renderToFile(cmd, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&opts.variant, "variant", "v", "", "mandelbrot, tricorn or burning-ship")
	f.StringVarP(&opts.landmark, "landmark", "l", "", "start from a named landmark")
	f.IntVarP(&opts.size, "size", "s", 0, "image width and height in pixels")
	f.IntVar(&opts.aa, "aa", 1, fmt.Sprintf("supersampling factor, 1 to %d", render.MaxSupersample))
	f.IntVarP(&opts.workers, "workers", "w", 0, "render workers (0 uses every CPU)")
	f.StringArrayVarP(&opts.zooms, "zoom", "z", nil, "click at pixel x,y; repeatable")
	f.StringVarP(&opts.output, "output", "o", "fractal.png", "output file")
	f.BoolVar(&opts.verbose, "verbose", false, "log every rendered tile")
	return cmd
}

func renderToFile(cmd *cobra.Command, cfg config.Config, opts options) error {
	f := cmd.Flags()
	if f.Changed("size") {
		cfg.Size = opts.size
	}
	if f.Changed("workers") {
		cfg.Render.Workers = opts.workers
	}
	if opts.variant != "" {
		v, err := fractal.ParseVariant(opts.variant)
		if err != nil {
			return err
		}
		cfg.Variant = v
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.aa < 1 || opts.aa > render.MaxSupersample {
		return fmt.Errorf("--aa must be in [1, %d], got %d", render.MaxSupersample, opts.aa)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)

	var tiles atomic.Int64
	renderer := cfg.Renderer()
	renderer.OnTileRender = func(tile image.Rectangle) {
		tiles.Add(1)
		logger.Debug("rendered tile", "tile", tile)
	}

	e := session.New(cfg.Variant, session.WithZoomScale(cfg.ZoomScale), session.WithRenderer(renderer))
	if opts.landmark != "" {
		l, err := fractal.LookupLandmark(opts.landmark)
		if err != nil {
			return err
		}
		e.Goto(l)
	}
	for _, z := range opts.zooms {
		x, y, err := parseClick(z, cfg.Size)
		if err != nil {
			return err
		}
		c := e.ZoomAt(x, y, cfg.Size)
		logger.Info("zoomed", "x", x, "y", y, "center", c)
	}

	st := e.State()
	logger.Info("rendering", "variant", st.Variant, "viewport", st.Viewport, "size", cfg.Size, "aa", opts.aa)
	img, err := e.RenderImage(cmd.Context(), cfg.Size, opts.aa)
	if err != nil {
		return err
	}

	out, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := render.EncodePNG(out, img); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info("image saved", "file", opts.output, "tiles", tiles.Load(), "magnification", st.Magnification)
	return nil
}

// parseClick reads "x,y" and checks it lies on a size×size grid.
func parseClick(s string, size int) (x, y int, err error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("zoom %q: want x,y", s)
	}
	if x, err = strconv.Atoi(strings.TrimSpace(xs)); err != nil {
		return 0, 0, fmt.Errorf("zoom %q: %w", s, err)
	}
	if y, err = strconv.Atoi(strings.TrimSpace(ys)); err != nil {
		return 0, 0, fmt.Errorf("zoom %q: %w", s, err)
	}
	if x < 0 || x >= size || y < 0 || y >= size {
		return 0, 0, fmt.Errorf("zoom %q: outside the %d×%d grid", s, size, size)
	}
	return x, y, nil
}
