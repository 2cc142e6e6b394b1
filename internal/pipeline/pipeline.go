// Package pipeline sequences a render request end to end: QR encoding with
// the error-correction policy, best-effort logo overlay, compositing,
// persistence and output encoding, including duplication mode.
package pipeline

import (
	"context"
	"encoding/base64"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/qrforge/qrforge/internal/compose"
	"github.com/qrforge/qrforge/internal/logo"
	"github.com/qrforge/qrforge/internal/params"
	"github.com/qrforge/qrforge/internal/qrerrors"
	"github.com/qrforge/qrforge/internal/render"
	"github.com/qrforge/qrforge/internal/store"
)

const dataURIPrefix = "data:image/png;base64,"

// Copy is one secondary artifact produced by duplication mode.
type Copy struct {
	ID      string
	DataURI string
}

// Result is the orchestrator output for one generate call.
type Result struct {
	ID         string
	DataURI    string
	PNG        []byte
	IsURL      bool
	Duplicates []Copy
}

// Pipeline wires the render stages to the artifact store. Duplicate renders
// run on a bounded semaphore so a burst of copies cannot monopolize CPU.
type Pipeline struct {
	store   *store.Store
	metrics Metrics
	sem     chan struct{}
	log     zerolog.Logger
}

// New builds a pipeline with the given duplicate-render concurrency.
func New(st *store.Store, metrics Metrics, workers int, log zerolog.Logger) *Pipeline {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		store:   st,
		metrics: metrics,
		sem:     make(chan struct{}, workers),
		log:     log,
	}
}

// Render runs the full pipeline for req. The request must already be
// validated (params.Parse) and any logo staged in the store's upload area.
func (p *Pipeline) Render(ctx context.Context, req params.Request) (Result, error) {
	art, dataURI, pngBytes, err := p.renderOne(req)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ID:      art.ID,
		DataURI: dataURI,
		PNG:     pngBytes,
		IsURL:   params.LooksLikeURL(req.Content),
	}

	copies := req.EffectiveCopies()
	if copies > 1 {
		dups, err := p.renderCopies(ctx, req, copies-1)
		if err != nil {
			return Result{}, err
		}
		res.Duplicates = dups
	}
	return res, nil
}

// renderCopies repeats the full render+persist sequence n times with
// identical parameters. Results come back slot-ordered so identifier order
// in the response is deterministic.
func (p *Pipeline) renderCopies(ctx context.Context, req params.Request, n int) ([]Copy, error) {
	dups := make([]Copy, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			select {
			case p.sem <- struct{}{}:
				defer func() { <-p.sem }()
			case <-ctx.Done():
				errs[slot] = qrerrors.Wrap(qrerrors.CodeInternal, ctx.Err(), "duplicate render canceled")
				return
			}
			art, dataURI, _, err := p.renderOne(req)
			if err != nil {
				errs[slot] = err
				return
			}
			dups[slot] = Copy{ID: art.ID, DataURI: dataURI}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return dups, nil
}

// renderOne produces and persists a single artifact.
func (p *Pipeline) renderOne(req params.Request) (store.Artifact, string, []byte, error) {
	start := time.Now()
	art, dataURI, pngBytes, err := p.doRender(req)
	p.metrics.ObserveRender(time.Since(start), err)
	return art, dataURI, pngBytes, err
}

func (p *Pipeline) doRender(req params.Request) (store.Artifact, string, []byte, error) {
	canvas, err := render.Encode(req, p.log)
	if err != nil {
		return store.Artifact{}, "", nil, err
	}

	if overlay := p.buildOverlay(req); overlay != nil {
		compose.Center(canvas, overlay)
	}

	art, err := p.store.Persist(canvas)
	if err != nil {
		return store.Artifact{}, "", nil, err
	}

	pngBytes, err := p.store.Retrieve(art.ID)
	if err != nil {
		return store.Artifact{}, "", nil, err
	}
	return art, dataURIPrefix + base64.StdEncoding.EncodeToString(pngBytes), pngBytes, nil
}

// buildOverlay is best effort: a logo that decoded at upload but fails here
// must not sink the render, so failures degrade to a plain QR.
func (p *Pipeline) buildOverlay(req params.Request) image.Image {
	if !req.HasLogo() {
		return nil
	}
	overlay, err := logo.BuildOverlay(req.LogoPath, req.SizePx, req.LogoSizePercent)
	if err != nil {
		p.log.Warn().Err(err).Str("logo", req.LogoPath).Msg("logo processing failed, rendering without logo")
		return nil
	}
	return overlay
}
