// Package render encodes request content into a QR symbol and rasterizes it
// at the requested size, module style and colors.
package render

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"

	"github.com/qrforge/qrforge/internal/params"
	"github.com/qrforge/qrforge/internal/qrerrors"
)

// EffectiveLevel applies the error-correction upgrade policy: a logo occludes
// center modules, so L and M are promoted to Q. Q and H already carry enough
// redundancy and stay untouched.
func EffectiveLevel(requested string, hasLogo bool) string {
	if hasLogo && (requested == "L" || requested == "M") {
		return "Q"
	}
	return requested
}

func ecOption(level string) qrcode.EncodeOption {
	switch level {
	case "L":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow)
	case "Q":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart)
	case "H":
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest)
	default:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium)
	}
}

// Encode renders the QR symbol for req into an RGBA canvas of exactly
// SizePx x SizePx. The symbol version is always auto-fitted to the content.
func Encode(req params.Request, log zerolog.Logger) (*image.RGBA, error) {
	level := EffectiveLevel(req.ErrorCorrection, req.HasLogo())
	if level != req.ErrorCorrection {
		log.Info().
			Str("requested", req.ErrorCorrection).
			Str("effective", level).
			Msg("upgraded error correction for logo compatibility")
	}

	qrc, err := qrcode.NewWith(req.Content, ecOption(level))
	if err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeInternal, err, "encode qr symbol")
	}

	opts := []standard.ImageOption{
		standard.WithQRWidth(uint8(req.BoxSize)),
		standard.WithBorderWidth(req.Margin * req.BoxSize),
		standard.WithFgColor(req.Foreground),
		standard.WithBgColor(req.Background),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}
	if req.RoundedRatio > 0 {
		opts = append(opts, standard.WithCustomShape(roundedShape{ratio: req.RoundedRatio}))
	}

	var buf bytes.Buffer
	w := standard.NewWithWriter(nopCloser{&buf}, opts...)
	if err := qrc.Save(w); err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeInternal, err, "rasterize qr symbol")
	}
	if err := w.Close(); err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeInternal, err, "close qr writer")
	}

	img, err := png.Decode(&buf)
	if err != nil {
		return nil, qrerrors.Wrap(qrerrors.CodeInternal, err, "decode rendered symbol")
	}

	// Lanczos keeps module edges clean at arbitrary target sizes; the
	// compositor needs an alpha-capable format afterwards.
	scaled := imaging.Resize(img, req.SizePx, req.SizePx, imaging.Lanczos)
	out := image.NewRGBA(image.Rect(0, 0, req.SizePx, req.SizePx))
	draw.Draw(out, out.Bounds(), scaled, image.Point{}, draw.Src)
	return out, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
