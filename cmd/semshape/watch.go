package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semshape/source"
)

func watchCmd() *cobra.Command {
	var (
		inputs   []string
		v        extractionFlagValues
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [files...]",
		Short: "Re-extract shapes whenever the input files change",
		Long: `Watch runs one extraction immediately, then monitors the input files
and reruns the complete pipeline after each change settles. Every rerun
is a full restart that rescans the inputs from the beginning; shapes are
never patched incrementally.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogging(cmd)
			cfg, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}

			if inputs = append(inputs, args...); len(inputs) > 0 {
				cfg.Input.Paths = inputs
			}
			applyExtractionFlags(cmd, cfg, v)
			if cmd.Flags().Changed("debounce") {
				cfg.Watch.Debounce = debounce
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app := NewApp(cfg, logger)
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer app.Shutdown(context.Background())

			return watchLoop(ctx, app, cfg.Input.Paths, cfg.Watch.Debounce)
		},
	}

	addExtractionFlags(cmd, &inputs, &v)
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before re-extracting after a change")
	return cmd
}

// watchLoop runs the initial extraction, then one fresh extraction per
// change batch until ctx is cancelled. A failed extraction does not end
// the loop; the next change gets a clean attempt.
func watchLoop(ctx context.Context, app *App, patterns []string, debounce time.Duration) error {
	if _, err := app.Extract(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		app.logger.Error("Initial extraction failed", "error", err)
	}

	watcher, err := source.NewWatcher(source.WatcherConfig{
		Patterns: patterns,
		Debounce: debounce,
		Logger:   app.logger,
	})
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-watcher.Batches():
			app.logger.Info("Inputs changed, re-extracting", "changed", len(batch))
			res, err := app.Extract(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				app.logger.Error("Extraction failed", "error", err)
				continue
			}
			app.logger.Info("Extraction complete",
				"run_id", res.RunID,
				"shapes", len(res.Shapes),
				"elapsed", res.Timing.Total)
		}
	}
}
