package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semshape/config"
	"github.com/c360studio/semshape/statsdb"
	"github.com/c360studio/semshape/storage"
)

func runsCmd() *cobra.Command {
	var (
		statsDBPath string
		fromStore   bool
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded extraction runs",
		Long: `Runs lists past extraction runs, newest first, from the SQLite
statistics database or (with --store) from the JetStream KV run records.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(cmd)
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("stats-db") {
				cfg.StatsDB.Path = statsDBPath
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if fromStore {
				return listStoredRuns(ctx, cfg, logger, limit)
			}
			return listRecordedRuns(ctx, cfg.StatsDB.Path, limit)
		},
	}

	cmd.Flags().StringVar(&statsDBPath, "stats-db", "", "SQLite statistics database path")
	cmd.Flags().BoolVar(&fromStore, "store", false, "Read run records from JetStream KV instead")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 = all)")
	return cmd
}

const runRowFormat = "%-36s  %-20s  %-10s  %10v  %8v  %7v  %6v\n"

func printRunHeader() {
	fmt.Printf(runRowFormat, "RUN", "STARTED", "DURATION", "TRIPLES", "CLASSES", "SHAPES", "ERRORS")
}

func printRunRow(id string, started, finished time.Time, triples int64, classes, shapes int, parseErrors int64) {
	fmt.Printf(runRowFormat,
		id,
		started.Format("2006-01-02 15:04:05"),
		finished.Sub(started).Round(time.Second),
		triples, classes, shapes, parseErrors)
}

func listRecordedRuns(ctx context.Context, path string, limit int) error {
	if path == "" {
		return fmt.Errorf("no statistics database configured (use --stats-db or stats_db.path)")
	}

	db, err := statsdb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	printRunHeader()
	for _, r := range runs {
		printRunRow(r.ID, r.StartedAt, r.FinishedAt, r.Triples, r.Classes, r.Shapes, r.ParseErrors)
	}
	return nil
}

// listStoredRuns reads run records from the JetStream KV bucket, which
// requires a reachable NATS server.
func listStoredRuns(ctx context.Context, cfg *config.Config, logger *slog.Logger, limit int) error {
	app := NewApp(cfg, logger)
	if err := app.connectNATS(ctx); err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	js, err := app.nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}
	store, err := storage.NewStore(ctx, js)
	if err != nil {
		return err
	}

	records, err := store.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	records = storage.RunsByRecency(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	printRunHeader()
	for _, r := range records {
		printRunRow(r.RunID, r.StartedAt, r.FinishedAt, r.Triples, r.Classes, r.Shapes, r.ParseErrors)
	}
	return nil
}
