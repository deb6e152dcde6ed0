// Package config provides configuration loading and management for Semshape.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/semshape/export"
	"github.com/c360studio/semshape/shape"
	"github.com/c360studio/semshape/vocabulary"
)

// Config represents the complete Semshape configuration
type Config struct {
	Input      InputConfig      `yaml:"input"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Output     OutputConfig     `yaml:"output"`
	NATS       NATSConfig       `yaml:"nats"`
	StatsDB    StatsDBConfig    `yaml:"stats_db"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Watch      WatchConfig      `yaml:"watch"`
}

// InputConfig configures the graph sources
type InputConfig struct {
	// Paths are the N-Triples files or globs to extract from
	Paths []string `yaml:"paths"`
}

// ExtractionConfig configures the extraction passes and thresholds
type ExtractionConfig struct {
	// TypePredicate is the predicate IRI asserting class membership (default: rdf:type)
	TypePredicate string `yaml:"type_predicate"`
	// TrackCardinality enables per-property occurrence counting for sh:maxCount bounds
	TrackCardinality bool `yaml:"track_cardinality"`
	// MinSupport is the minimum support for a constraint to appear (0.0-1.0, default: 0)
	MinSupport float64 `yaml:"min_support"`
	// MandatoryThreshold is the support at which a constraint becomes mandatory (default: 1.0)
	MandatoryThreshold float64 `yaml:"mandatory_threshold"`
	// ExpectedClasses presizes the class aggregates (estimate only)
	ExpectedClasses int `yaml:"expected_classes"`
	// ExpectedEntities presizes the entity store (estimate only)
	ExpectedEntities int `yaml:"expected_entities"`
}

// OutputConfig configures shape serialization
type OutputConfig struct {
	// Path is the output file path (empty = stdout)
	Path string `yaml:"path"`
	// Format is the serialization format: turtle, ntriples, or jsonld
	Format string `yaml:"format"`
	// Profile controls annotation detail: core, standard, or annotated
	Profile string `yaml:"profile"`
	// BaseIRI is the namespace minted shape IRIs live under
	BaseIRI string `yaml:"base_iri"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = NATS disabled)
	URL string `yaml:"url"`
	// Publish enables publishing extracted shapes to the shape stream
	Publish bool `yaml:"publish"`
	// Store enables persisting shapes and run records to JetStream KV
	Store bool `yaml:"store"`
	// Name identifies this client to the NATS server
	Name string `yaml:"name"`
}

// StatsDBConfig configures the support statistics database
type StatsDBConfig struct {
	// Path is the SQLite database file (empty = disabled)
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus exposition endpoint
type MetricsConfig struct {
	// Addr is the listen address, e.g. ":9090" (empty = disabled)
	Addr string `yaml:"addr"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is how long to wait after a file change before re-extracting
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			TypePredicate:      vocabulary.RDFType,
			TrackCardinality:   false,
			MinSupport:         0,
			MandatoryThreshold: 1.0,
		},
		Output: OutputConfig{
			Path:    "", // stdout
			Format:  string(export.FormatTurtle),
			Profile: string(export.ProfileStandard),
			BaseIRI: shape.DefaultBaseIRI,
		},
		NATS: NATSConfig{
			URL:  "",
			Name: "semshape",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
	}
}

// Policy returns the shape construction thresholds.
func (c *Config) Policy() shape.Policy {
	return shape.Policy{
		MinSupport:         c.Extraction.MinSupport,
		MandatoryThreshold: c.Extraction.MandatoryThreshold,
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Extraction.TypePredicate == "" {
		return fmt.Errorf("extraction.type_predicate is required")
	}
	if c.Extraction.MinSupport < 0 || c.Extraction.MinSupport > 1 {
		return fmt.Errorf("extraction.min_support must be between 0 and 1")
	}
	if c.Extraction.MandatoryThreshold < 0 || c.Extraction.MandatoryThreshold > 1 {
		return fmt.Errorf("extraction.mandatory_threshold must be between 0 and 1")
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if _, err := export.ParseProfile(c.Output.Profile); err != nil {
		return fmt.Errorf("output.profile: %w", err)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, expanding ${VAR} and
// ${VAR:-default} environment references before parsing
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(expandEnv(data), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Input
	if len(other.Input.Paths) > 0 {
		c.Input.Paths = other.Input.Paths
	}

	// Extraction
	if other.Extraction.TypePredicate != "" {
		c.Extraction.TypePredicate = other.Extraction.TypePredicate
	}
	if other.Extraction.TrackCardinality {
		c.Extraction.TrackCardinality = true
	}
	if other.Extraction.MinSupport != 0 {
		c.Extraction.MinSupport = other.Extraction.MinSupport
	}
	if other.Extraction.MandatoryThreshold != 0 {
		c.Extraction.MandatoryThreshold = other.Extraction.MandatoryThreshold
	}
	if other.Extraction.ExpectedClasses != 0 {
		c.Extraction.ExpectedClasses = other.Extraction.ExpectedClasses
	}
	if other.Extraction.ExpectedEntities != 0 {
		c.Extraction.ExpectedEntities = other.Extraction.ExpectedEntities
	}

	// Output
	if other.Output.Path != "" {
		c.Output.Path = other.Output.Path
	}
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Profile != "" {
		c.Output.Profile = other.Output.Profile
	}
	if other.Output.BaseIRI != "" {
		c.Output.BaseIRI = other.Output.BaseIRI
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Publish {
		c.NATS.Publish = true
	}
	if other.NATS.Store {
		c.NATS.Store = true
	}
	if other.NATS.Name != "" {
		c.NATS.Name = other.NATS.Name
	}

	// Sinks
	if other.StatsDB.Path != "" {
		c.StatsDB.Path = other.StatsDB.Path
	}
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

// expandEnv substitutes ${VAR} and ${VAR:-default} references.
func expandEnv(data []byte) []byte {
	return []byte(os.Expand(string(data), func(key string) string {
		if name, def, ok := strings.Cut(key, ":-"); ok {
			if v, set := os.LookupEnv(name); set {
				return v
			}
			return def
		}
		return os.Getenv(key)
	}))
}
