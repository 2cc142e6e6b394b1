package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrforge/qrforge/internal/params"
	"github.com/qrforge/qrforge/internal/store"
)

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store, *Counters) {
	t.Helper()
	base := t.TempDir()
	st, err := store.New(filepath.Join(base, "uploads"), filepath.Join(base, "generated"), zerolog.Nop())
	require.NoError(t, err)
	metrics := NewCounters()
	return New(st, metrics, 2, zerolog.Nop()), st, metrics
}

func helloRequest() params.Request {
	return params.Request{
		Content:         "hello world",
		ErrorCorrection: "M",
		SizePx:          256,
		BoxSize:         10,
		Margin:          4,
		Foreground:      color.RGBA{0, 0, 0, 255},
		Background:      color.RGBA{255, 255, 255, 255},
		LogoSizePercent: 20,
		DuplicateCount:  1,
	}
}

func TestRenderHelloWorld(t *testing.T) {
	p, st, metrics := newTestPipeline(t)

	res, err := p.Render(context.Background(), helloRequest())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.DataURI, "data:image/png;base64,"))
	assert.False(t, res.IsURL)
	assert.Empty(t, res.Duplicates)

	img, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())

	// The data-URI payload is the persisted PNG.
	encoded := strings.TrimPrefix(res.DataURI, "data:image/png;base64,")
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Equal(t, res.PNG, decoded)

	stored, err := st.Retrieve(res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.PNG, stored)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Renders)
	assert.Zero(t, snap.Failures)
}

func TestRenderURLContent(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := helloRequest()
	req.Content = "https://example.com/page"
	res, err := p.Render(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsURL)
}

func TestRenderDuplicates(t *testing.T) {
	p, st, metrics := newTestPipeline(t)
	req := helloRequest()
	req.DuplicateCount = 4

	res, err := p.Render(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Duplicates, 3)

	// Primary first, all identifiers distinct, every artifact retrievable.
	ids := map[string]bool{res.ID: true}
	for _, d := range res.Duplicates {
		assert.False(t, ids[d.ID], "duplicate identifier reused")
		ids[d.ID] = true
		assert.True(t, strings.HasPrefix(d.DataURI, "data:image/png;base64,"))
		_, err := st.Retrieve(d.ID)
		assert.NoError(t, err)
	}
	assert.Len(t, ids, 4)
	assert.Equal(t, uint64(4), metrics.Snapshot().Renders)
}

func TestRenderAutoDuplicate(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := helloRequest()
	req.AutoDuplicate = true

	res, err := p.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Duplicates, 1)
}

func TestRenderWithLogo(t *testing.T) {
	p, st, _ := newTestPipeline(t)

	logoPath := filepath.Join(st.UploadDir(), "logo.png")
	writeSolidPNG(t, logoPath, 64)

	req := helloRequest()
	req.SizePx = 512
	req.LogoPath = logoPath

	res, err := p.Render(context.Background(), req)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dx())
}

func TestRenderLogoFailureFallsBack(t *testing.T) {
	p, st, _ := newTestPipeline(t)

	req := helloRequest()
	req.LogoPath = filepath.Join(st.UploadDir(), "vanished.png")

	res, err := p.Render(context.Background(), req)
	require.NoError(t, err, "logo failure must not sink the render")
	assert.NotEmpty(t, res.ID)
}

func TestRenderCanceledContextStopsDuplicates(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := helloRequest()
	req.DuplicateCount = 5

	// The primary render still completes; canceled duplicate slots surface
	// as an error rather than a short result.
	_, err := p.Render(ctx, req)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestCountersSnapshot(t *testing.T) {
	c := NewCounters()
	c.ObserveRender(10*time.Millisecond, nil)
	c.ObserveRender(30*time.Millisecond, assert.AnError)

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.Renders)
	assert.Equal(t, uint64(1), snap.Failures)
	assert.InDelta(t, 20.0, snap.AverageMillis, 0.01)
}

func writeSolidPNG(t *testing.T, path string, size int) {
	t.Helper()
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			canvas.SetRGBA(x, y, color.RGBA{R: 40, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, canvas))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}
