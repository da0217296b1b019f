package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/pixelfield/tofsink/internal/config"
	"github.com/pixelfield/tofsink/internal/ingest"
	"github.com/pixelfield/tofsink/internal/logging"
	"github.com/pixelfield/tofsink/internal/observability"
	"github.com/pixelfield/tofsink/internal/protocol/frame"
	"github.com/pixelfield/tofsink/internal/stream"
)

const version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tofsink: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML config file")
	host := flag.String("host", "", "digitizer host (overrides config)")
	port := flag.Int("port", 0, "digitizer port (overrides config)")
	output := flag.String("output", "", "snapshot file path (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "ops/metrics listen address (overrides config)")
	flag.Parse()

	observability.InitLogger("tofsink", logging.ConfigureRuntime())

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyFlagOverrides(&cfg, *host, *port, *output, *metricsAddr)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	readTimeout, err := cfg.ReadTimeoutDuration()
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		go serveOps(cfg.MetricsAddr)
	}

	svc, err := ingest.NewService(ingest.Config{
		Addr:       cfg.Addr(),
		OutputPath: cfg.OutputPath,
		Stream: stream.Config{
			ReadTimeout: readTimeout,
		},
		Limits: frame.Limits{
			MaxBufferBytes: cfg.MaxBufferBytes,
			MaxBins:        cfg.MaxBins,
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("tofsink: shutdown requested")
			return nil
		}
		return err
	}
	return nil
}

func applyFlagOverrides(cfg *config.Config, host string, port int, output, metricsAddr string) {
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}
	if output != "" {
		cfg.OutputPath = output
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
}

func serveOps(addr string) {
	log.Info().Str("addr", addr).Msg("tofsink: ops endpoint listening")
	if err := http.ListenAndServe(addr, observability.NewOpsHandler(version)); err != nil {
		log.Error().Err(err).Msg("tofsink: ops endpoint failed")
	}
}
