// Command climate aggregates TDV climate observation files into per-region
// statistics and prints a report to stdout.
//
// Usage:
//
//	climate [-format text|json|yaml] [-serve] FILE...
//
// A FILE of "-" reads standard input. Logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/couchcryptid/climate-report/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/climate-report/internal/adapter/kafka"
	"github.com/couchcryptid/climate-report/internal/config"
	"github.com/couchcryptid/climate-report/internal/domain"
	"github.com/couchcryptid/climate-report/internal/observability"
	"github.com/couchcryptid/climate-report/internal/pipeline"
	"github.com/couchcryptid/climate-report/internal/report"
)

const (
	defaultServeAddr = ":8080"
	pushJob          = "climate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, observability.NewMetrics())
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	fs := flag.NewFlagSet("climate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "", "report format: text, json, or yaml (overrides REPORT_FORMAT)")
	serve := fs.Bool("serve", false, "keep the HTTP server running after the report until interrupted")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: climate [-format text|json|yaml] [-serve] FILE...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "climate: load config: %v\n", err)
		return 1
	}
	if *format != "" {
		if !config.ValidFormat(*format) {
			fmt.Fprintf(stderr, "climate: invalid -format %q: want text, json, or yaml\n", *format)
			return 1
		}
		cfg.ReportFormat = *format
	}
	if *serve && cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultServeAddr
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr)

	agg := pipeline.New(domain.NewTable(cfg.MaxRegions), cfg.MaxLineLength, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, agg, metrics.Gatherer(), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer shutdownServer(srv, cfg, logger)
	}

	code := aggregateAndReport(ctx, cfg, agg, fs.Args(), stdin, stdout, srv, metrics, logger)
	pushMetrics(cfg, metrics, logger)

	if *serve {
		logger.Info("serving report until interrupted", "addr", cfg.HTTPAddr)
		<-ctx.Done()
		logger.Info("shutting down")
	}
	return code
}

// aggregateAndReport runs the aggregation, prints the report, and publishes it
// when Kafka is configured. It returns the process exit code.
func aggregateAndReport(ctx context.Context, cfg *config.Config, agg *pipeline.Aggregator, args []string,
	stdin io.Reader, stdout io.Writer, srv *httpadapter.Server, metrics *observability.Metrics, logger *slog.Logger,
) int {
	res, err := agg.Run(ctx, pipeline.SourcesFromArgs(args, stdin))
	if err != nil {
		logger.Error("aggregation failed", "error", err, "sources", len(res.Sources))
		return 1
	}
	logger.Info("aggregation complete",
		"sources", len(res.Sources),
		"succeeded", res.Succeeded(),
		"regions", res.Regions,
	)

	rep := report.Build(uuid.NewString(), domain.Now(), agg.Table().All(), cfg.ReportLocation)
	if err := report.Render(stdout, rep, cfg.ReportFormat); err != nil {
		logger.Error("render report", "error", err)
		return 1
	}
	if srv != nil {
		srv.SetReport(rep)
	}

	if cfg.KafkaEnabled() {
		if err := publish(ctx, cfg, rep, metrics, logger); err != nil {
			logger.Error("publish report", "error", err)
			return 1
		}
	}
	return 0
}

func publish(ctx context.Context, cfg *config.Config, rep report.Report, metrics *observability.Metrics, logger *slog.Logger) error {
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	if err := writer.Publish(ctx, rep); err != nil {
		metrics.PublishErrors.Inc()
		return err
	}
	metrics.SummariesPublished.Add(float64(len(rep.Regions)))
	return nil
}

func pushMetrics(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metrics.Push(ctx, cfg.PushgatewayURL, pushJob); err != nil {
		logger.Warn("metrics push failed", "error", err)
	}
}

func shutdownServer(srv *httpadapter.Server, cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
}
