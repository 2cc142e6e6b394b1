// Package handlers exposes the render pipeline over HTTP. The web layer is a
// thin collaborator: it decodes raw fields, hands validated primitives to the
// pipeline and maps the error taxonomy onto status codes.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qrforge/qrforge/internal/pipeline"
	"github.com/qrforge/qrforge/internal/qrerrors"
	"github.com/qrforge/qrforge/internal/store"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	pipe    *pipeline.Pipeline
	store   *store.Store
	metrics *pipeline.Counters
	log     zerolog.Logger
}

// New returns a new Handler instance.
func New(pipe *pipeline.Pipeline, st *store.Store, metrics *pipeline.Counters, log zerolog.Logger) *Handler {
	return &Handler{pipe: pipe, store: st, metrics: metrics, log: log}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// Metrics returns the render counters.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// MaxBodySize caps request bodies, including multipart uploads.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// respondError maps the error taxonomy to HTTP statuses. Internal detail is
// logged, never leaked.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch qrerrors.CodeOf(err) {
	case qrerrors.CodeInvalidInput, qrerrors.CodeInvalidUpload:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case qrerrors.CodeNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
