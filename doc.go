// Package fractal holds the escape-time fractal core: the viewport that maps a square
// pixel grid onto the complex plane, and the Mandelbrot, Tricorn and Burning Ship variants
// sharing one iteration loop.
//
// Coloring and the pixel loop live in package render, interactive state in package session.
package fractal
