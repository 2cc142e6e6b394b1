package render

import (
	"github.com/yeqown/go-qrcode/writer/standard"
)

// roundedShape implements standard.IShape, drawing each data module as a
// rounded rectangle whose corner radius is ratio * module edge.
type roundedShape struct {
	ratio float64
}

func (s roundedShape) Draw(ctx *standard.DrawContext) {
	x, y := ctx.UpperLeft()
	w, h := ctx.Edge()
	ctx.DrawRoundedRectangle(x, y, float64(w), float64(h), s.ratio*float64(w))
	ctx.SetColor(ctx.Color())
	ctx.Fill()
}

// DrawFinder keeps the three finder patterns square; scanners lock onto them
// and rounding there hurts detection more than it helps looks.
func (s roundedShape) DrawFinder(ctx *standard.DrawContext) {
	x, y := ctx.UpperLeft()
	w, h := ctx.Edge()
	ctx.DrawRectangle(x, y, float64(w), float64(h))
	ctx.SetColor(ctx.Color())
	ctx.Fill()
}
