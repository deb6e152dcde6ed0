package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c360studio/semshape/vocabulary"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Extraction.TypePredicate != vocabulary.RDFType {
		t.Errorf("expected rdf:type as default typing predicate, got %s", cfg.Extraction.TypePredicate)
	}
	if cfg.Extraction.MandatoryThreshold != 1.0 {
		t.Errorf("expected mandatory threshold 1.0, got %f", cfg.Extraction.MandatoryThreshold)
	}
	if cfg.Output.Format != "turtle" {
		t.Errorf("expected default format turtle, got %s", cfg.Output.Format)
	}
	if cfg.Output.Profile != "standard" {
		t.Errorf("expected default profile standard, got %s", cfg.Output.Profile)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected default debounce 2s, got %v", cfg.Watch.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing type predicate",
			modify:  func(c *Config) { c.Extraction.TypePredicate = "" },
			wantErr: true,
		},
		{
			name:    "min support too low",
			modify:  func(c *Config) { c.Extraction.MinSupport = -0.1 },
			wantErr: true,
		},
		{
			name:    "min support too high",
			modify:  func(c *Config) { c.Extraction.MinSupport = 1.1 },
			wantErr: true,
		},
		{
			name:    "mandatory threshold too high",
			modify:  func(c *Config) { c.Extraction.MandatoryThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "unknown output format",
			modify:  func(c *Config) { c.Output.Format = "rdfxml" },
			wantErr: true,
		},
		{
			name:    "unknown output profile",
			modify:  func(c *Config) { c.Output.Profile = "bfo" },
			wantErr: true,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
input:
  paths:
    - /data/graphs/*.nt.gz
    - /data/extra.nt
extraction:
  type_predicate: "http://example.org/isA"
  track_cardinality: true
  min_support: 0.25
  mandatory_threshold: 0.9
output:
  path: "/out/shapes.ttl"
  format: "turtle"
  profile: "annotated"
nats:
  url: "nats://test:4222"
  publish: true
stats_db:
  path: "/out/stats.db"
metrics:
  addr: ":9090"
watch:
  debounce: 5s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if len(cfg.Input.Paths) != 2 {
		t.Errorf("expected 2 input paths, got %d", len(cfg.Input.Paths))
	}
	if cfg.Extraction.TypePredicate != "http://example.org/isA" {
		t.Errorf("expected custom typing predicate, got %s", cfg.Extraction.TypePredicate)
	}
	if !cfg.Extraction.TrackCardinality {
		t.Error("expected cardinality tracking enabled")
	}
	if cfg.Extraction.MinSupport != 0.25 {
		t.Errorf("expected min support 0.25, got %f", cfg.Extraction.MinSupport)
	}
	if cfg.Extraction.MandatoryThreshold != 0.9 {
		t.Errorf("expected mandatory threshold 0.9, got %f", cfg.Extraction.MandatoryThreshold)
	}
	if cfg.Output.Profile != "annotated" {
		t.Errorf("expected annotated profile, got %s", cfg.Output.Profile)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if !cfg.NATS.Publish {
		t.Error("expected publishing enabled")
	}
	if cfg.StatsDB.Path != "/out/stats.db" {
		t.Errorf("expected stats db path /out/stats.db, got %s", cfg.StatsDB.Path)
	}
	if cfg.Metrics.Addr != ":9090" {
		t.Errorf("expected metrics addr :9090, got %s", cfg.Metrics.Addr)
	}
	if cfg.Watch.Debounce != 5*time.Second {
		t.Errorf("expected debounce 5s, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadFromFileExpandsEnv(t *testing.T) {
	t.Setenv("SEMSHAPE_TEST_NATS", "nats://fromenv:4222")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
nats:
  url: "${SEMSHAPE_TEST_NATS}"
output:
  path: "${SEMSHAPE_TEST_UNSET:-/tmp/shapes.ttl}"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.NATS.URL != "nats://fromenv:4222" {
		t.Errorf("expected env-expanded NATS URL, got %s", cfg.NATS.URL)
	}
	if cfg.Output.Path != "/tmp/shapes.ttl" {
		t.Errorf("expected fallback output path, got %s", cfg.Output.Path)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Extraction: ExtractionConfig{
			TypePredicate: "http://example.org/isA",
			MinSupport:    0.5,
		},
		Output: OutputConfig{
			Path: "/override/shapes.nt",
		},
	}

	base.Merge(override)

	if base.Extraction.TypePredicate != "http://example.org/isA" {
		t.Errorf("expected overridden typing predicate, got %s", base.Extraction.TypePredicate)
	}
	if base.Extraction.MinSupport != 0.5 {
		t.Errorf("expected min support 0.5, got %f", base.Extraction.MinSupport)
	}
	// Format should remain from base since override didn't set it
	if base.Output.Format != "turtle" {
		t.Errorf("expected format to remain default, got %s", base.Output.Format)
	}
	// Mandatory threshold should remain from base
	if base.Extraction.MandatoryThreshold != 1.0 {
		t.Errorf("expected mandatory threshold to remain 1.0, got %f", base.Extraction.MandatoryThreshold)
	}
	if base.Output.Path != "/override/shapes.nt" {
		t.Errorf("expected output path /override/shapes.nt, got %s", base.Output.Path)
	}
}

func TestConfigPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extraction.MinSupport = 0.3
	cfg.Extraction.MandatoryThreshold = 0.8

	policy := cfg.Policy()
	if policy.MinSupport != 0.3 {
		t.Errorf("expected policy min support 0.3, got %f", policy.MinSupport)
	}
	if policy.MandatoryThreshold != 0.8 {
		t.Errorf("expected policy mandatory threshold 0.8, got %f", policy.MandatoryThreshold)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Input.Paths = []string{"/data/saved.nt"}

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if len(loaded.Input.Paths) != 1 || loaded.Input.Paths[0] != "/data/saved.nt" {
		t.Errorf("expected saved input paths, got %v", loaded.Input.Paths)
	}
}
