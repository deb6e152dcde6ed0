package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semshape/config"
	"github.com/c360studio/semshape/export"
	"github.com/c360studio/semshape/extractor"
	"github.com/c360studio/semshape/graph"
	"github.com/c360studio/semshape/metric"
	"github.com/c360studio/semshape/source"
	"github.com/c360studio/semshape/statsdb"
	"github.com/c360studio/semshape/storage"
)

// ShapeStreamName is the JetStream stream receiving shape ingest messages.
const ShapeStreamName = "SHAPES"

// App wires the extraction pipeline to its configured output and sinks.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.Metrics

	// Sinks, nil when not configured
	nc        *natsclient.Client
	publisher *graph.Publisher
	store     *storage.Store
	statsDB   *statsdb.DB
}

// NewApp creates a new application instance.
func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{cfg: cfg, logger: logger, metrics: metric.New()}
}

// Start connects the sinks the configuration enables. The metrics
// listener, when configured, serves until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.NATS.Publish || a.cfg.NATS.Store {
		if err := a.connectNATS(ctx); err != nil {
			return err
		}
	}

	if a.cfg.NATS.Publish {
		if err := a.ensureShapeStream(ctx); err != nil {
			return err
		}
		a.publisher = graph.NewPublisher(a.nc, a.logger)
	}

	if a.cfg.NATS.Store {
		js, err := a.nc.JetStream()
		if err != nil {
			return fmt.Errorf("jetstream context: %w", err)
		}
		store, err := storage.NewStore(ctx, js)
		if err != nil {
			return fmt.Errorf("initialize shape storage: %w", err)
		}
		a.store = store
	}

	if a.cfg.StatsDB.Path != "" {
		db, err := statsdb.Open(a.cfg.StatsDB.Path)
		if err != nil {
			return fmt.Errorf("open stats db: %w", err)
		}
		a.statsDB = db
	}

	if a.cfg.Metrics.Addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.cfg.Metrics.Addr, a.logger); err != nil {
				a.logger.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	return nil
}

// Shutdown releases sink connections.
func (a *App) Shutdown(ctx context.Context) {
	if a.statsDB != nil {
		if err := a.statsDB.Close(); err != nil {
			a.logger.Warn("Closing stats db", "error", err)
		}
	}
	if a.nc != nil {
		if err := a.nc.Close(ctx); err != nil {
			a.logger.Warn("Closing NATS client", "error", err)
		}
	}
}

// Extract runs the pipeline once over the configured inputs, writes the
// serialized shapes, and delivers the result to every configured sink.
func (a *App) Extract(ctx context.Context) (*extractor.Result, error) {
	if len(a.cfg.Input.Paths) == 0 {
		return nil, fmt.Errorf("no input paths configured (use --input or input.paths)")
	}

	src := source.New(a.cfg.Input.Paths, a.logger)
	x := extractor.New(extractor.Options{
		TypePredicate:    a.cfg.Extraction.TypePredicate,
		TrackCardinality: a.cfg.Extraction.TrackCardinality,
		ShapeBaseIRI:     a.cfg.Output.BaseIRI,
		ExpectedClasses:  a.cfg.Extraction.ExpectedClasses,
		ExpectedEntities: a.cfg.Extraction.ExpectedEntities,
	}, a.logger, a.metrics)

	res, err := x.Run(ctx, src, a.cfg.Policy())
	if err != nil {
		return nil, err
	}

	if err := a.writeShapes(res); err != nil {
		return nil, err
	}
	a.deliver(ctx, res)

	return res, nil
}

// writeShapes serializes the shapes to the configured output path, or to
// stdout when no path is set.
func (a *App) writeShapes(res *extractor.Result) error {
	format, err := export.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}
	profile, err := export.ParseProfile(a.cfg.Output.Profile)
	if err != nil {
		return err
	}

	exporter := export.NewSHACLExporter(profile)
	exporter.AddShapes(res.Shapes...)
	doc, err := exporter.Export(format)
	if err != nil {
		return fmt.Errorf("export shapes: %w", err)
	}

	if a.cfg.Output.Path == "" {
		fmt.Print(doc)
		return nil
	}

	if dir := filepath.Dir(a.cfg.Output.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(a.cfg.Output.Path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("write shapes: %w", err)
	}

	a.logger.Info("Shapes written",
		"path", a.cfg.Output.Path,
		"format", format,
		"shapes", len(res.Shapes))
	return nil
}

// deliver fans the result out to the optional sinks. Sink failures are
// logged and counted; the primary output already exists at this point.
func (a *App) deliver(ctx context.Context, res *extractor.Result) {
	if a.publisher != nil {
		if err := a.publisher.PublishShapes(ctx, res); err != nil {
			a.metrics.RecordSinkError("publish")
			a.logger.Error("Publishing shapes", "error", err, "run_id", res.RunID)
		}
	}
	if a.store != nil {
		if _, err := a.store.SaveResult(ctx, res); err != nil {
			a.metrics.RecordSinkError("store")
			a.logger.Error("Storing shapes", "error", err, "run_id", res.RunID)
		}
	}
	if a.statsDB != nil {
		if err := a.statsDB.SaveRun(ctx, res); err != nil {
			a.metrics.RecordSinkError("statsdb")
			a.logger.Error("Saving run statistics", "error", err, "run_id", res.RunID)
		}
	}
}

func (a *App) connectNATS(ctx context.Context) error {
	url := a.cfg.NATS.URL

	// Environment variable override takes precedence
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		url = envURL
	} else if envURL := os.Getenv("SEMSHAPE_NATS_URL"); envURL != "" {
		url = envURL
	}
	if url == "" {
		url = "nats://localhost:4222"
	}

	a.logger.Info("Connecting to NATS", "url", url)

	client, err := natsclient.NewClient(url,
		natsclient.WithName(a.cfg.NATS.Name),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
	)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return wrapNATSError(err, url)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(connCtx); err != nil {
		return wrapNATSError(err, url)
	}

	a.nc = client
	a.logger.Info("Connected to NATS", "url", url)
	return nil
}

// ensureShapeStream makes sure the stream covering shape ingest subjects
// exists before anything publishes to it.
func (a *App) ensureShapeStream(ctx context.Context) error {
	if _, err := a.nc.GetStream(ctx, ShapeStreamName); err == nil {
		return nil
	}

	_, err := a.nc.CreateStream(ctx, jetstream.StreamConfig{
		Name:     ShapeStreamName,
		Subjects: []string{graph.ShapeIngestSubjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("ensure shape stream: %w", err)
	}
	return nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	// Check for common connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
