// Package main is the entry point for the spread-engine decision service:
// a thin HTTP/WebSocket surface over the fixed eight-stage decision
// pipeline, the adaptive polling controller, and the trade-memory store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spxdesk/spread-engine/internal/alerts"
	"github.com/spxdesk/spread-engine/internal/api"
	"github.com/spxdesk/spread-engine/internal/config"
	"github.com/spxdesk/spread-engine/internal/decision"
	"github.com/spxdesk/spread-engine/internal/trademem"
	"github.com/spxdesk/spread-engine/internal/volatility"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "Path to the engine's YAML configuration file")
	host := flag.String("host", "localhost", "API server host")
	port := flag.Int("port", 8090, "API server port")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("starting spread-engine",
		zap.String("host", *host),
		zap.Int("port", *port),
		zap.String("mode", string(cfg.Mode)),
		zap.Bool("simulation_mode", cfg.SimulationMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	volCache := volatility.NewCache(logger, cfg.StoragePaths.IVCachePath)
	store := trademem.New(logger, cfg.StoragePaths.CandidatesPath, cfg.StoragePaths.ExecutionsPath)
	eventLog := trademem.NewEventLog(logger, cfg.StoragePaths.EventLogPath)
	alertMgr := alerts.NewManager(logger, alerts.DefaultConfig())
	pipeline := decision.New(logger, cfg)

	serverCfg := api.Config{Host: *host, Port: *port, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
	server := api.New(logger, serverCfg, pipeline, volCache, store, eventLog, alertMgr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Error("api server stopped", zap.Error(err))
			cancel()
		}
	}()

	logger.Info("spread-engine ready",
		zap.String("evaluate", "POST /api/v1/evaluate"),
		zap.String("ws", "/ws"),
		zap.String("metrics", "/metrics"),
	)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", zap.Error(err))
	}

	logger.Info("spread-engine stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
