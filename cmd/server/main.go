package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"autoreply/embeddings/internal/api"
	"autoreply/embeddings/internal/config"
	"autoreply/embeddings/internal/encoder"
	"autoreply/embeddings/internal/log"
	"autoreply/embeddings/internal/metrics"
	"autoreply/embeddings/internal/service"
)

// startupTimeout bounds model loading and the validation probe.
const startupTimeout = 2 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.ErrorLogger.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var m *metrics.Metrics
	var observer encoder.Observer
	if cfg.Metrics.Enabled {
		m = metrics.New()
		observer = m
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	log.InfoLogger.Printf("📦 Loading embedding model %s (provider: %s)", cfg.ModelName(), cfg.Embedding.Provider)
	enc, err := encoder.NewFactory(cfg, observer).Create(startupCtx)
	if err != nil {
		log.ErrorLogger.Fatalf("FATAL: Failed to create encoder: %v", err)
	}

	if err := encoder.ValidateConnection(startupCtx, enc); err != nil {
		log.ErrorLogger.Fatalf("FATAL: Failed to validate encoder connection: %v", err)
	}
	cancel()
	log.InfoLogger.Printf("✅ Model loaded: %s (%d dimensions)", enc.ModelName(), enc.Dimensions())

	svc := service.New(enc, string(cfg.Embedding.Provider))
	router := api.NewRouter(cfg, svc, m)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.InfoLogger.Printf("🚀 Starting embedding service on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorLogger.Fatalf("🔥 Could not start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.InfoLogger.Printf("🛑 Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}
	log.InfoLogger.Printf("Server stopped")
}
