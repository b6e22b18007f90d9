package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/api"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/cache"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/config"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/sim"
	"github.com/Mecca-Research/SolarHarmonicsConsole/internal/stream"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (overrides SOLAR_CONFIG)")
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level.Set(cfg.LogLevel)

	engine, err := sim.NewEngine(cfg.Sim, logger)
	if err != nil {
		logger.Error("failed to build scene", "error", err)
		os.Exit(1)
	}

	orbits := cache.NewOrbitCache(cfg.Cache, engine, logger)
	streamHandler := stream.NewHandler(engine, cfg.Stream, logger)
	srv := api.NewServer(cfg.HTTP, logger, cfg.Auth, engine, orbits, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sim.NewScheduler(engine, cfg.Sim.TickInterval, logger).Run(ctx)
	go orbits.Start(ctx)

	go func() {
		logger.Info("starting server", "addr", cfg.HTTP.Addr, "auth_enabled", cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
