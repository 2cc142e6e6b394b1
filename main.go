package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qrforge/qrforge/internal/config"
	"github.com/qrforge/qrforge/internal/handlers"
	"github.com/qrforge/qrforge/internal/logging"
	"github.com/qrforge/qrforge/internal/pipeline"
	"github.com/qrforge/qrforge/internal/store"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFile)

	st, err := store.New(cfg.UploadDir, cfg.GeneratedDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("artifact store init failed")
	}

	metrics := pipeline.NewCounters()
	pipe := pipeline.New(st, metrics, cfg.RenderWorkers, log)
	h := handlers.New(pipe, st, metrics, log)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.MaxBodySize(cfg.MaxUploadBytes))

	api := r.Group("/api")
	{
		api.POST("/generate", h.Generate)
		api.GET("/qr/:id/download", h.Download)
	}
	r.GET("/download/:id", h.Download)
	r.GET("/health", h.Health)
	r.GET("/metrics", h.Metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runSweeper(ctx, st, cfg, log)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("qrforge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// runSweeper retires old artifacts on a timer instead of on the request
// path, so sweep cost never adds latency to renders. One pass runs at
// startup to clear leftovers from a previous run.
func runSweeper(ctx context.Context, st *store.Store, cfg config.Config, log zerolog.Logger) {
	st.Sweep(time.Now(), cfg.MaxAge())

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := st.Sweep(now, cfg.MaxAge())
			log.Debug().Int("removed", removed).Msg("retention sweep complete")
		}
	}
}
