// Command etl runs the school-data batch pipeline.
//
// The fetch phase pulls the full school-unit catalog with per-unit detail
// and statistics and writes the raw snapshot; the process phase turns the
// raw snapshot into the published dataset. Run both with -phase all (the
// default), or rerun processing offline with -phase process.
//
// With -cron a full run repeats on the given schedule, e.g.:
//
//	etl -cron "0 3 1 */3 *"   # 03:00 on the 1st, every third month
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	httpadapter "github.com/skolkartan/school-data-etl/internal/adapter/http"
	kafkaadapter "github.com/skolkartan/school-data-etl/internal/adapter/kafka"
	"github.com/skolkartan/school-data-etl/internal/adapter/skolverket"
	"github.com/skolkartan/school-data-etl/internal/adapter/snapshot"
	"github.com/skolkartan/school-data-etl/internal/config"
	"github.com/skolkartan/school-data-etl/internal/observability"
	"github.com/skolkartan/school-data-etl/internal/pipeline"
)

func main() {
	phase := flag.String("phase", "all", "pipeline phase to run: fetch, process, or all")
	configPath := flag.String("config", "", "optional YAML config file")
	cronSpec := flag.String("cron", "", "optional cron schedule for recurring full runs")
	flag.Parse()

	if *phase != "fetch" && *phase != "process" && *phase != "all" {
		slog.Error("invalid -phase, want fetch, process, or all", "phase", *phase)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := skolverket.NewClient(cfg, logger, metrics)
	store := snapshot.NewStore(cfg.RawSnapshotPath(), cfg.FetchMetadataPath(), cfg.ProcessedSnapshotPath(), logger)
	fetcher := pipeline.NewFetcher(client, store, logger, metrics, cfg.BatchSize, cfg.BatchDelay, cfg.ProgressInterval)

	// Kafka publishing is feature-flagged; the snapshot file is always written.
	var publisher pipeline.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}
	processor := pipeline.NewProcessor(store, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := newOperationalServer(cfg, *phase, fetcher, processor, logger)
	if srv != nil {
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}
	if kafkaWriter != nil {
		defer func() {
			if err := kafkaWriter.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
	}

	run := func(ctx context.Context) error {
		return runPhases(ctx, *phase, fetcher, processor)
	}

	if *cronSpec != "" {
		runScheduled(ctx, *cronSpec, run, logger)
		return
	}

	if err := run(ctx); err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

// runPhases executes the requested phases in order. Errors name the failing
// phase so a non-zero exit is diagnosable from the last log line alone.
func runPhases(ctx context.Context, phase string, fetcher *pipeline.Fetcher, processor *pipeline.Processor) error {
	if phase == "fetch" || phase == "all" {
		if err := fetcher.Run(ctx); err != nil {
			return fmt.Errorf("fetch phase: %w", err)
		}
	}
	if phase == "process" || phase == "all" {
		if err := processor.Run(ctx); err != nil {
			return fmt.Errorf("process phase: %w", err)
		}
	}
	return nil
}

// runScheduled runs once immediately, then on the cron schedule until the
// signal context is cancelled.
func runScheduled(ctx context.Context, spec string, run func(context.Context) error, logger *slog.Logger) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := run(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid cron schedule", "spec", spec, "error", err)
		os.Exit(2)
	}

	if err := run(ctx); err != nil {
		logger.Error("scheduled run failed", "error", err)
	}

	logger.Info("scheduler started", "spec", spec)
	c.Start()
	<-ctx.Done()
	c.Stop()
	logger.Info("scheduler stopped")
}

// newOperationalServer wires readiness and progress to whichever phase runs
// first. Returns nil when the HTTP surface is disabled.
func newOperationalServer(cfg *config.Config, phase string, fetcher *pipeline.Fetcher, processor *pipeline.Processor, logger *slog.Logger) *httpadapter.Server {
	if cfg.HTTPAddr == "" {
		return nil
	}
	if phase == "process" {
		return httpadapter.NewServer(cfg.HTTPAddr, processor, nil, logger)
	}
	return httpadapter.NewServer(cfg.HTTPAddr, fetcher, fetcher, logger)
}
