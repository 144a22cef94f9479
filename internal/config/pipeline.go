package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"bulkd/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline YAML, validates it, and returns the
// parsed spec and an absolute path to the source config (if set).
func LoadPipelineSpec(path string) (spec.File, string, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, "", err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, "", fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	if err := validate(&cfg); err != nil {
		return cfg, "", fmt.Errorf("pipeline %s: %w", path, err)
	}
	confPath := cfg.Source.Config
	if confPath != "" && !filepath.IsAbs(confPath) {
		confPath = filepath.Join(filepath.Dir(path), confPath)
	}
	return cfg, confPath, nil
}

func validate(cfg *spec.File) error {
	if cfg.Bulk.Threshold <= 0 {
		return fmt.Errorf("bulk.threshold must be positive, got %d", cfg.Bulk.Threshold)
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = "stdin"
	}
	if len(cfg.Sinks) == 0 {
		return errors.New("at least one sink is required")
	}
	seen := make(map[string]bool, len(cfg.Sinks))
	for _, s := range cfg.Sinks {
		if seen[s] {
			return fmt.Errorf("sink %q listed twice", s)
		}
		seen[s] = true
	}
	return nil
}
