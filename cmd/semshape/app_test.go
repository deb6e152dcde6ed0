package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semshape/config"
	"github.com/c360studio/semshape/statsdb"
)

const parisFixture = `<http://example.org/Paris> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/City> .
<http://example.org/Paris> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/Capital> .
<http://example.org/Paris> <http://example.org/population> "2M" .
<http://example.org/Versailles> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://example.org/City> .
<http://example.org/Versailles> <http://example.org/near> <http://example.org/Paris> .
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixtureConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "graph.nt")
	require.NoError(t, os.WriteFile(input, []byte(parisFixture), 0o644))

	cfg := config.DefaultConfig()
	cfg.Input.Paths = []string{input}
	cfg.Output.Path = filepath.Join(dir, "shapes.ttl")
	return cfg
}

func TestAppExtractWritesShapes(t *testing.T) {
	cfg := fixtureConfig(t)
	app := NewApp(cfg, testLogger())

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer app.Shutdown(ctx)

	res, err := app.Extract(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Shapes, 2, "City and Capital")
	assert.Equal(t, map[string]int{
		"http://example.org/City":    2,
		"http://example.org/Capital": 1,
	}, res.ClassCounts)

	data, err := os.ReadFile(cfg.Output.Path)
	require.NoError(t, err)
	doc := string(data)
	assert.Contains(t, doc, "@prefix sh: <http://www.w3.org/ns/shacl#> .")
	assert.Contains(t, doc, "a sh:NodeShape")
	assert.Contains(t, doc, "sh:targetClass <http://example.org/City>")
	assert.Contains(t, doc, "sh:datatype xsd:string")
	assert.Contains(t, doc, "sh:class <http://example.org/City>", "near points at a typed entity")
	assert.Contains(t, doc, "sh:minCount 1", "population holds on every Capital")
}

func TestAppExtractRecordsRunInStatsDB(t *testing.T) {
	cfg := fixtureConfig(t)
	cfg.StatsDB.Path = filepath.Join(t.TempDir(), "stats.db")
	app := NewApp(cfg, testLogger())

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))

	res, err := app.Extract(ctx)
	require.NoError(t, err)
	app.Shutdown(ctx)

	db, err := statsdb.Open(cfg.StatsDB.Path)
	require.NoError(t, err)
	defer db.Close()

	run, err := db.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Shapes)
	assert.Equal(t, int64(10), run.Triples, "both passes scan all five lines")
}

func TestAppExtractRequiresInputs(t *testing.T) {
	cfg := config.DefaultConfig()
	app := NewApp(cfg, testLogger())

	_, err := app.Extract(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input paths")
}

func TestApplyExtractionFlagsTracksChanged(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	var inputs []string
	var v extractionFlagValues
	addExtractionFlags(cmd, &inputs, &v)

	require.NoError(t, cmd.Flags().Set("min-support", "0.4"))
	require.NoError(t, cmd.Flags().Set("format", "ntriples"))
	require.NoError(t, cmd.Flags().Set("cardinality", "true"))

	cfg := config.DefaultConfig()
	cfg.Extraction.MandatoryThreshold = 0.9 // from a config file
	cfg.Output.Profile = "annotated"
	applyExtractionFlags(cmd, cfg, v)

	assert.Equal(t, 0.4, cfg.Extraction.MinSupport)
	assert.Equal(t, "ntriples", cfg.Output.Format)
	assert.True(t, cfg.Extraction.TrackCardinality)

	// Values no flag touched keep their config-file settings.
	assert.Equal(t, 0.9, cfg.Extraction.MandatoryThreshold)
	assert.Equal(t, "annotated", cfg.Output.Profile)
}

func TestRootCommandSubcommands(t *testing.T) {
	root := rootCmd()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"extract", "watch", "runs", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSetupLoggingLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		cmd := &cobra.Command{Use: "test"}
		cmd.PersistentFlags().String("log-level", level, "")
		logger := setupLogging(cmd)
		require.NotNil(t, logger, level)
	}
}

func TestWrapNATSError(t *testing.T) {
	err := wrapNATSError(errors.New("connection refused"), "nats://localhost:4222")
	assert.Contains(t, err.Error(), "NATS is not running")

	err = wrapNATSError(errors.New("authorization violation"), "nats://localhost:4222")
	assert.NotContains(t, err.Error(), "NATS is not running")
	assert.Contains(t, err.Error(), "NATS connection failed")
}
