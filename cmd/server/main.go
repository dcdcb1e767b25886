package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/morphdetect/morphdetect-api/internal/config"
	"github.com/morphdetect/morphdetect-api/internal/detector"
	"github.com/morphdetect/morphdetect-api/internal/handlers"
	"github.com/morphdetect/morphdetect-api/internal/history"
	"github.com/morphdetect/morphdetect-api/internal/server"
	"github.com/morphdetect/morphdetect-api/pkg/logger"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	log, err := logger.New()
	if err != nil {
		os.Stderr.WriteString("CRITICAL: failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	log.Info("initializing morph detection model",
		zap.String("model_type", cfg.Model.ModelType),
		zap.String("checkpoint", cfg.Model.CheckpointPath))

	// Checkpoint failures degrade the service instead of killing it: the
	// handle stays sessionless and health reports the model as unloaded.
	modelAvailable := true
	handle, err := detector.NewModelHandle(cfg.Model.ModelType, cfg.Model.CheckpointPath,
		cfg.Model.DefaultPath, cfg.Model.SharedLibrary)
	if err != nil {
		if handle == nil {
			log.Error("inference runtime unavailable, starting in demo mode", zap.Error(err))
			modelAvailable = false
			handle = detector.NewUnloadedHandle(cfg.Model.ModelType)
		} else {
			log.Error("failed to load model checkpoint, starting in demo mode", zap.Error(err))
		}
	}
	defer handle.Close()

	if handle.Ready() {
		log.Info("model initialized",
			zap.String("model_type", cfg.Model.ModelType),
			zap.Int("input_size", handle.InputSize()))
	} else {
		log.Warn("model not loaded, service running in demo mode")
	}

	store, err := history.NewStore(cfg.App.HistoryFile, log)
	if err != nil {
		log.Fatal("failed to create history store", zap.Error(err))
	}

	d := detector.New(handle, log)
	h := handlers.NewHandler(d, store, cfg, log, modelAvailable)
	srv := server.New(h, cfg, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := <-quit
	log.Info("received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
