package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/soil-water-etl/internal/adapter/http"
	influxadapter "github.com/couchcryptid/soil-water-etl/internal/adapter/influx"
	kafkaadapter "github.com/couchcryptid/soil-water-etl/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/soil-water-etl/internal/adapter/mqtt"
	"github.com/couchcryptid/soil-water-etl/internal/adapter/textfile"
	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/observability"
	"github.com/couchcryptid/soil-water-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	site, err := config.LoadSite(cfg.SiteConfig)
	if err != nil {
		logger.Error("failed to load site", "path", cfg.SiteConfig, "error", err)
		os.Exit(1)
	}
	profile, err := site.BuildProfile()
	if err != nil {
		logger.Error("invalid site profile", "path", cfg.SiteConfig, "error", err)
		os.Exit(1)
	}
	logger.Info("site loaded", "site", site.Name, "layers", profile.Len(), "max_root_depth", site.MaxRootDepth)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observed water content comes from a file or from live probe readings.
	var content pipeline.ContentSource
	switch cfg.ContentSource {
	case config.ContentFromMQTT:
		client, err := mqttadapter.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to connect to mqtt", "error", err)
			os.Exit(1)
		}
		defer client.Disconnect(250)

		collector := mqttadapter.NewCollector(profile, nil, logger, metrics)
		go func() {
			if err := collector.Consume(ctx, client, cfg.MQTTTopic); err != nil {
				logger.Error("mqtt consumer error", "error", err)
			}
		}()
		content = collector
	default:
		content = textfile.ContentFile{Path: cfg.ContentFile}
		logger.Info("reading water content from file", "path", cfg.ContentFile)
	}

	// Sinks are feature-flagged and each guarded by its own breaker.
	var (
		loaders []pipeline.RecordLoader
		closers []io.Closer
	)
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, pipeline.NewBreakerLoader(writer, cfg.BreakerFailures, cfg.BreakerTimeout, logger))
		closers = append(closers, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka sink disabled")
	}
	if cfg.InfluxEnabled() {
		writer := influxadapter.NewWriter(cfg, logger)
		loaders = append(loaders, pipeline.NewBreakerLoader(writer, cfg.BreakerFailures, cfg.BreakerTimeout, logger))
		closers = append(closers, writer)
		logger.Info("influx sink enabled", "bucket", cfg.InfluxBucket)
	} else {
		logger.Info("influx sink disabled")
	}

	p := pipeline.New(
		content,
		textfile.SimulationFile{Path: cfg.SimulationFile},
		loaders,
		pipeline.Options{
			Site:         site.Name,
			Profile:      profile,
			MaxRootDepth: site.MaxRootDepth,
			Workers:      cfg.Workers,
		},
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start evaluation loop.
	go func() {
		if err := p.Run(ctx, cfg.EvaluationInterval); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
