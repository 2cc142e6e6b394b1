// Package compose merges a rendered QR canvas with an optional overlay.
package compose

import (
	"image"
	"image/draw"
)

// Center composites overlay onto canvas at the canvas center, alpha-aware:
// transparent overlay pixels never occlude the modules beneath them. The
// canvas is modified in place and returned.
func Center(canvas *image.RGBA, overlay image.Image) *image.RGBA {
	if overlay == nil {
		return canvas
	}
	cb := canvas.Bounds()
	ob := overlay.Bounds()
	x := cb.Min.X + (cb.Dx()-ob.Dx())/2
	y := cb.Min.Y + (cb.Dy()-ob.Dy())/2
	dst := image.Rect(x, y, x+ob.Dx(), y+ob.Dy())
	draw.Draw(canvas, dst, overlay, ob.Min, draw.Over)
	return canvas
}
