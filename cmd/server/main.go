// Command melodeon-server starts the Melodeon music streaming server.
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
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/avolkhov/melodeon/internal/config"
	"github.com/avolkhov/melodeon/internal/library"
	"github.com/avolkhov/melodeon/internal/repository/jsonfile"
	httpserver "github.com/avolkhov/melodeon/internal/server/http"
	"github.com/avolkhov/melodeon/internal/service"
	"github.com/avolkhov/melodeon/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// newLogger builds the process logger from LOG_LEVEL / LOG_FORMAT.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(cfg.LogLevel); err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.LogFormat == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// main loads configuration, wires components and runs the HTTP server until
// a shutdown signal arrives.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr()),
		zap.String("music_folder", cfg.MusicFolder),
	)

	if err := cfg.EnsureSecret(logger); err != nil {
		logger.Fatal("signing secret", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("configuration validation failed", zap.Error(err))
	}

	// Account store: unparseable state is a startup failure, never silently
	// discarded data.
	store, err := jsonfile.New(cfg.UsersFile, logger)
	if err != nil {
		logger.Fatal("open account store", zap.Error(err))
	}

	codec := token.New([]byte(cfg.JWTSecret), cfg.TokenTTL())
	authSvc := service.NewAuthService(store, codec, logger)
	lib := library.New(cfg.MusicFolder, logger)

	if cfg.LogFormat == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := httpserver.New(authSvc, codec, lib, cfg.UsersFile, version, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr()))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed, closing", zap.Error(err))
			_ = httpSrv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
