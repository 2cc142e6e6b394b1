// Package params turns raw request fields into a fully-clamped render
// request. Numeric fields are lenient (parse-or-default, then saturating
// clamp); content, error-correction tokens and colors are strict.
package params

import (
	"image/color"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/qrforge/qrforge/internal/qrerrors"
)

// Field names as the web layer sends them, shared by the form and JSON
// decoders in the transport package.
const (
	FieldContent         = "content"
	FieldErrorCorrection = "error_correction"
	FieldSizePx          = "size_px"
	FieldBoxSize         = "box_size"
	FieldMargin          = "margin"
	FieldFgColor         = "fg_color"
	FieldBgColor         = "bg_color"
	FieldRounded         = "rounded"
	FieldLogoSize        = "logo_size"
	FieldDuplicateCount  = "duplicate_count"
	FieldAutoDuplicate   = "auto_duplicate"
)

// Defaults and bounds for every numeric parameter.
const (
	DefaultSizePx   = 512
	MinSizePx       = 128
	MaxSizePx       = 4096
	DefaultBoxSize  = 10
	MinBoxSize      = 1
	MaxBoxSize      = 50
	DefaultMargin   = 4
	MinMargin       = 0
	MaxMargin       = 32
	DefaultLogoSize = 20
	MinLogoSize     = 5
	MaxLogoSize     = 30
	DefaultCopies   = 1
	MinCopies       = 1
	MaxCopies       = 10

	DefaultRounded = 0.0
	MinRounded     = 0.0
	MaxRounded     = 0.5

	DefaultErrorCorrection = "M"
	DefaultForeground      = "#000000"
	DefaultBackground      = "#FFFFFF"
)

// Fields is the transport-normalized view of a generate request: every value
// already flattened to its string form. Absent keys take defaults.
type Fields map[string]string

// Request is an immutable, fully-validated render request. All numeric
// fields are inside their documented bounds.
type Request struct {
	Content         string
	ErrorCorrection string // one of L, M, Q, H
	SizePx          int
	BoxSize         int
	Margin          int
	Foreground      color.RGBA
	Background      color.RGBA
	RoundedRatio    float64
	LogoSizePercent int
	DuplicateCount  int
	AutoDuplicate   bool

	// LogoPath is the staged upload path, set by the transport after the
	// store accepted the file. Empty means no logo.
	LogoPath string
}

// HasLogo reports whether a staged logo accompanies the request.
func (r Request) HasLogo() bool { return r.LogoPath != "" }

// EffectiveCopies resolves duplication mode: an explicit count wins,
// auto_duplicate alone means two artifacts, otherwise one.
func (r Request) EffectiveCopies() int {
	if r.DuplicateCount > 1 {
		return r.DuplicateCount
	}
	if r.AutoDuplicate {
		return 2
	}
	return 1
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

// Parse validates and clamps raw fields into a Request.
func Parse(f Fields) (Request, error) {
	content := f[FieldContent]
	if strings.TrimSpace(content) == "" {
		return Request{}, qrerrors.E(qrerrors.CodeInvalidInput, "please provide text or a valid URL")
	}

	ec, err := normalizeErrorCorrection(f[FieldErrorCorrection])
	if err != nil {
		return Request{}, err
	}

	fg, err := parseColorField(f, FieldFgColor, DefaultForeground, "foreground")
	if err != nil {
		return Request{}, err
	}
	bg, err := parseColorField(f, FieldBgColor, DefaultBackground, "background")
	if err != nil {
		return Request{}, err
	}

	return Request{
		Content:         content,
		ErrorCorrection: ec,
		SizePx:          clampInt(f[FieldSizePx], MinSizePx, MaxSizePx, DefaultSizePx),
		BoxSize:         clampInt(f[FieldBoxSize], MinBoxSize, MaxBoxSize, DefaultBoxSize),
		Margin:          clampInt(f[FieldMargin], MinMargin, MaxMargin, DefaultMargin),
		Foreground:      fg,
		Background:      bg,
		RoundedRatio:    clampFloat(f[FieldRounded], MinRounded, MaxRounded, DefaultRounded),
		LogoSizePercent: clampInt(f[FieldLogoSize], MinLogoSize, MaxLogoSize, DefaultLogoSize),
		DuplicateCount:  clampInt(f[FieldDuplicateCount], MinCopies, MaxCopies, DefaultCopies),
		AutoDuplicate:   strings.EqualFold(f[FieldAutoDuplicate], "true"),
	}, nil
}

func normalizeErrorCorrection(raw string) (string, error) {
	level := strings.ToUpper(strings.TrimSpace(raw))
	if level == "" {
		return DefaultErrorCorrection, nil
	}
	switch level {
	case "L", "M", "Q", "H":
		return level, nil
	}
	return "", qrerrors.E(qrerrors.CodeInvalidInput, "invalid error correction level %q", raw)
}

func parseColorField(f Fields, key, def, label string) (color.RGBA, error) {
	raw, ok := f[key]
	if !ok || raw == "" {
		raw = def
	}
	c, err := ParseHexColor(raw)
	if err != nil {
		return color.RGBA{}, qrerrors.E(qrerrors.CodeInvalidInput, "invalid %s color %q", label, raw)
	}
	return c, nil
}

// ParseHexColor parses #RGB or #RRGGBB into an opaque RGBA color. Anything
// else is rejected, never coerced.
func ParseHexColor(s string) (color.RGBA, error) {
	if !hexColorRe.MatchString(s) {
		return color.RGBA{}, qrerrors.E(qrerrors.CodeInvalidInput, "invalid hex color %q", s)
	}
	hexDigits := s[1:]
	if len(hexDigits) == 3 {
		// Expand shorthand: #abc -> #aabbcc.
		hexDigits = string([]byte{
			hexDigits[0], hexDigits[0],
			hexDigits[1], hexDigits[1],
			hexDigits[2], hexDigits[2],
		})
	}
	r, _ := strconv.ParseUint(hexDigits[0:2], 16, 8)
	g, _ := strconv.ParseUint(hexDigits[2:4], 16, 8)
	b, _ := strconv.ParseUint(hexDigits[4:6], 16, 8)
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}, nil
}

// LooksLikeURL reports whether s parses as an http(s) URL with a host. It is
// advisory display metadata only and never gates validation.
func LooksLikeURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func clampInt(raw string, min, max, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(raw string, min, max, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		v = def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
