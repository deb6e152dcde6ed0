// Package main provides the semshape binary entry point.
// Semshape infers SHACL node shapes from N-Triples graphs by streaming
// the data twice: once for class membership, once for property
// constraints.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semshape/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semshape"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "semshape",
		Short: "SHACL shape extraction from RDF graphs",
		Long: `Semshape extracts SHACL node shapes from N-Triples graphs.

It streams the data twice: the first pass records which classes each
entity belongs to, the second records which properties and object types
each entity carries. Per-class support statistics turn those
observations into node shapes with class, datatype, cardinality, and
mandatory constraints.

Shapes are serialized as Turtle, N-Triples, or JSON-LD, and can also be
published to a NATS shape stream, stored in JetStream KV, and recorded
in a SQLite statistics database.`,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(extractCmd())
	cmd.AddCommand(watchCmd())
	cmd.AddCommand(runsCmd())

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// setupLogging configures the default logger from the --log-level flag.
func setupLogging(cmd *cobra.Command) *slog.Logger {
	logLevel, _ := cmd.Flags().GetString("log-level")

	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads configuration from --config if given, otherwise with
// the layered loader (defaults, user config, project config).
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}
