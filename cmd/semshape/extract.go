package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/semshape/config"
)

func extractCmd() *cobra.Command {
	var (
		inputs []string
		v      extractionFlagValues
	)

	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Extract SHACL shapes from N-Triples inputs",
		Long: `Extract streams the input graph twice (class membership, then property
constraints), computes per-combination support statistics, and
serializes the resulting node shapes.

Inputs may be plain, gzip, or zstd compressed N-Triples files, or globs
such as 'data/**/*.nt.gz'. Malformed lines are skipped and counted, not
fatal.`,
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

			res, err := app.Extract(ctx)
			if err != nil {
				return err
			}

			logger.Info("Extraction complete",
				"run_id", res.RunID,
				"shapes", len(res.Shapes),
				"classes", len(res.ClassCounts),
				"entities", res.Entities,
				"parse_errors", res.ParseErrors(),
				"elapsed", res.Timing.Total)
			return nil
		},
	}

	addExtractionFlags(cmd, &inputs, &v)
	return cmd
}

// extractionFlagValues carries the flag values shared by the extract and
// watch commands.
type extractionFlagValues struct {
	typePredicate      string
	cardinality        bool
	minSupport         float64
	mandatoryThreshold float64
	format             string
	profile            string
	outPath            string
	baseIRI            string
	publish            bool
	store              bool
	statsDBPath        string
	metricsAddr        string
	expectedClasses    int
	expectedEntities   int
}

// addExtractionFlags registers the pipeline flags shared by extract and
// watch.
func addExtractionFlags(cmd *cobra.Command, inputs *[]string, v *extractionFlagValues) {
	cmd.Flags().StringSliceVarP(inputs, "input", "i", nil, "N-Triples file or glob (repeatable)")
	cmd.Flags().StringVar(&v.typePredicate, "type-predicate", "", "Predicate IRI asserting class membership (default rdf:type)")
	cmd.Flags().BoolVar(&v.cardinality, "cardinality", false, "Track per-property occurrence counts for sh:maxCount")
	cmd.Flags().Float64Var(&v.minSupport, "min-support", 0, "Minimum support for a constraint to appear (0.0-1.0)")
	cmd.Flags().Float64Var(&v.mandatoryThreshold, "mandatory-threshold", 1.0, "Support at which a property becomes sh:minCount 1")
	cmd.Flags().StringVarP(&v.format, "format", "f", "", "Output format: turtle, ntriples, or jsonld")
	cmd.Flags().StringVar(&v.profile, "profile", "", "Output profile: core, standard, or annotated")
	cmd.Flags().StringVarP(&v.outPath, "out", "o", "", "Output file path (default stdout)")
	cmd.Flags().StringVar(&v.baseIRI, "base-iri", "", "Namespace for minted shape IRIs")
	cmd.Flags().BoolVar(&v.publish, "publish", false, "Publish shapes to the NATS shape stream")
	cmd.Flags().BoolVar(&v.store, "store", false, "Persist shapes and run record to JetStream KV")
	cmd.Flags().StringVar(&v.statsDBPath, "stats-db", "", "SQLite statistics database path")
	cmd.Flags().StringVar(&v.metricsAddr, "metrics-addr", "", "Prometheus listen address, e.g. :9090")
	cmd.Flags().IntVar(&v.expectedClasses, "expected-classes", 0, "Class count estimate for presizing")
	cmd.Flags().IntVar(&v.expectedEntities, "expected-entities", 0, "Entity count estimate for presizing")
}

// applyExtractionFlags overrides config values with flags the user set
// explicitly. Changed tracking keeps config file values in force when a
// flag is left at its default.
func applyExtractionFlags(cmd *cobra.Command, cfg *config.Config, v extractionFlagValues) {
	flags := cmd.Flags()
	if flags.Changed("type-predicate") {
		cfg.Extraction.TypePredicate = v.typePredicate
	}
	if flags.Changed("cardinality") {
		cfg.Extraction.TrackCardinality = v.cardinality
	}
	if flags.Changed("min-support") {
		cfg.Extraction.MinSupport = v.minSupport
	}
	if flags.Changed("mandatory-threshold") {
		cfg.Extraction.MandatoryThreshold = v.mandatoryThreshold
	}
	if flags.Changed("expected-classes") {
		cfg.Extraction.ExpectedClasses = v.expectedClasses
	}
	if flags.Changed("expected-entities") {
		cfg.Extraction.ExpectedEntities = v.expectedEntities
	}
	if flags.Changed("format") {
		cfg.Output.Format = v.format
	}
	if flags.Changed("profile") {
		cfg.Output.Profile = v.profile
	}
	if flags.Changed("out") {
		cfg.Output.Path = v.outPath
	}
	if flags.Changed("base-iri") {
		cfg.Output.BaseIRI = v.baseIRI
	}
	if flags.Changed("publish") {
		cfg.NATS.Publish = v.publish
	}
	if flags.Changed("store") {
		cfg.NATS.Store = v.store
	}
	if flags.Changed("stats-db") {
		cfg.StatsDB.Path = v.statsDBPath
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = v.metricsAddr
	}
}
