package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/api"
	"github.com/GriffinCanCode/chatstream/internal/domain/conversations"
	"github.com/GriffinCanCode/chatstream/internal/domain/session"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/config"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/logging"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/render"
	"github.com/GriffinCanCode/chatstream/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatstream: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "", "YAML or TOML config file")
	apiURL := pflag.String("api-url", "", "REST API base URL")
	wsURL := pflag.String("ws-url", "", "WebSocket stream base URL")
	logLevel := pflag.String("log-level", "", "Log level (debug, info, warn, error)")
	logDev := pflag.Bool("log-dev", false, "Development logging (colored, debug)")
	logOutput := pflag.String("log-output", "", "Log output path")
	metricsAddr := pflag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	}
	if *wsURL != "" {
		cfg.Stream.BaseURL = *wsURL
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if pflag.CommandLine.Changed("log-dev") {
		cfg.Logging.Development = *logDev
	}
	if *logOutput != "" {
		cfg.Logging.Output = *logOutput
	}
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{cfg.Logging.Output},
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, metrics, logger.Component("metrics"))
	}

	client := api.New(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout.Std(),
		RateLimit: cfg.API.RateLimit,
		Retries:   cfg.API.Retries,
		Logger:    logger.Component("api"),
		Metrics:   metrics,
	})

	list := conversations.New()
	renderer := render.New(os.Stdout, os.Stderr)

	ctrl := session.NewController(session.Options{
		BaseURL: cfg.Stream.BaseURL,
		Dialer: ws.WebSocketDialer{
			Dialer: &websocket.Dialer{
				Proxy:             http.ProxyFromEnvironment,
				HandshakeTimeout:  45 * time.Second,
				EnableCompression: cfg.Stream.Compression,
			},
			ReadLimit: cfg.Stream.ReadLimit,
		},
		HandshakeTimeout: cfg.Stream.HandshakeTimeout.Std(),
		WriteTimeout:     cfg.Stream.WriteTimeout.Std(),
		History:          client,
		Observer:         &tracker{Renderer: renderer, list: list},
		Logger:           logger.Component("controller"),
		Metrics:          metrics,
	})

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	logger.Info("Client started",
		zap.String("api", cfg.API.BaseURL),
		zap.String("stream", cfg.Stream.BaseURL))

	r := &repl{
		ctrl:   ctrl,
		client: client,
		list:   list,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	if err := list.Load(ctx, client); err != nil {
		logger.Warn("Conversation list unavailable", zap.Error(err))
	} else {
		r.printSessions()
	}

	err = r.run(ctx, os.Stdin)
	stop()
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Warn("Controller stopped", zap.Error(runErr))
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func serveMetrics(ctx context.Context, addr string, metrics *monitoring.Metrics, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server failed", zap.Error(err))
	}
}
