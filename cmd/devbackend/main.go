package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/infrastructure/config"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/logging"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/server"
)

func main() {
	configPath := pflag.String("config", "", "YAML or TOML config file")
	host := pflag.String("host", "", "Listen host")
	port := pflag.String("port", "", "Listen port")
	model := pflag.String("model", "", "Initial model id")
	chunkDelay := pflag.Duration("chunk-delay", 0, "Delay between streamed chunks")
	dev := pflag.Bool("dev", false, "Development mode (colored logs, debug level)")
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devbackend: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.DevBackend.Host = *host
	}
	if *port != "" {
		cfg.DevBackend.Port = *port
	}
	if *model != "" {
		cfg.DevBackend.DefaultModel = *model
	}
	if pflag.CommandLine.Changed("chunk-delay") {
		cfg.DevBackend.ChunkDelay = config.Duration(*chunkDelay)
	}

	var logger *logging.Logger
	if *dev || cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			OutputPaths: []string{cfg.Logging.Output},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "devbackend: failed to create logger: %v\n", err)
			os.Exit(1)
		}
		gin.SetMode(gin.ReleaseMode)
	}
	defer logger.Sync()

	srv := server.New(server.Options{
		Config:    cfg.DevBackend,
		RateLimit: cfg.RateLimit,
		Logger:    logger.Component("devbackend"),
		Metrics:   monitoring.NewMetrics(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Development backend starting",
		zap.String("addr", srv.Addr()),
		zap.String("model", srv.Catalog().Current().ID))

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Shut down gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
