// Package logo builds the centered overlay that gets composited onto a
// rendered QR canvas: the uploaded image resized to a scannability-bounded
// square, behind a feathered circular mask, on a soft white backing disc.
package logo

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/qrforge/qrforge/internal/qrerrors"

	_ "golang.org/x/image/webp"
)

const (
	// minEdgePx is the absolute floor for the overlay edge; anything smaller
	// is unreadable as a logo and wastes error-correction budget.
	minEdgePx = 32
	// backingAlpha leaves the white disc a touch translucent so it blends
	// with non-white backgrounds instead of stamping a hard circle.
	backingAlpha = 240
	// featherSigma is the Gaussian blur applied to the circular mask edge.
	featherSigma = 1.0
)

// OverlayEdge computes the square overlay edge for a canvas of sizePx and a
// requested logo percentage. The result is always inside
// [max(32, 5% of canvas), min(30% of canvas, canvas/3)] regardless of the
// requested percentage; that bound protects decodability.
func OverlayEdge(sizePx, logoSizePercent int) int {
	edge := sizePx * logoSizePercent / 100

	minEdge := sizePx * 5 / 100
	if minEdge < minEdgePx {
		minEdge = minEdgePx
	}
	maxEdge := sizePx * 30 / 100
	if third := sizePx / 3; third < maxEdge {
		maxEdge = third
	}

	if edge < minEdge {
		edge = minEdge
	}
	if edge > maxEdge {
		edge = maxEdge
	}
	return edge
}

// BuildOverlay loads the staged logo and produces the square RGBA overlay
// ready for centering. Any failure returns CodeLogoProcessing so the caller
// can fall back to a plain render.
func BuildOverlay(logoPath string, sizePx, logoSizePercent int) (*image.RGBA, error) {
	src, err := imaging.Open(logoPath)
	if err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeLogoProcessing, err, "open logo %s", logoPath)
	}
	return buildFromImage(src, sizePx, logoSizePercent)
}

func buildFromImage(src image.Image, sizePx, logoSizePercent int) (*image.RGBA, error) {
	edge := OverlayEdge(sizePx, logoSizePercent)

	// Fit preserves aspect ratio; the logo is then centered on a transparent
	// square canvas of the clamped edge.
	fitted := imaging.Fit(src, edge, edge, imaging.Lanczos)
	canvas := imaging.PasteCenter(imaging.New(edge, edge, image.Transparent), fitted)

	mask, err := circularMask(edge)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(edge, edge)

	// Backing disc first: slightly larger than the logo circle, near-opaque
	// white, so the logo keeps contrast against any foreground color. The
	// overflow past the canvas edge is clipped, matching the padded-circle
	// look of the masked logo above it.
	half := float64(edge) / 2
	dc.DrawCircle(half, half, half+2)
	dc.SetRGBA255(255, 255, 255, backingAlpha)
	dc.Fill()

	if err := dc.SetMask(mask); err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeLogoProcessing, err, "apply circular mask")
	}
	dc.DrawImage(canvas, 0, 0)

	out := image.NewRGBA(image.Rect(0, 0, edge, edge))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}

// circularMask renders a filled circle and feathers its edge so the logo
// blends into the modules instead of ending in a hard square.
func circularMask(edge int) (*image.Alpha, error) {
	mc := gg.NewContext(edge, edge)
	half := float64(edge) / 2
	mc.DrawCircle(half, half, half)
	mc.SetRGB(1, 1, 1)
	mc.Fill()

	blurred := imaging.Blur(mc.Image(), featherSigma)

	// The blurred disc is grayscale; any channel works as coverage.
	mask := image.NewAlpha(image.Rect(0, 0, edge, edge))
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			mask.Pix[mask.PixOffset(x, y)] = blurred.NRGBAAt(x, y).R
		}
	}
	return mask, nil
}
