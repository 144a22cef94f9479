package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEngine_DefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "engine.yml")
	if err := os.WriteFile(p, []byte("pipeline: /etc/bulkd/pipeline.yml\ngrpc_port: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BULKD_METRICS_PORT", "9999")

	cfg, err := LoadEngine(p)
	if err != nil {
		t.Fatalf("LoadEngine: %v", err)
	}
	if cfg.Pipeline != "/etc/bulkd/pipeline.yml" {
		t.Fatalf("pipeline = %q", cfg.Pipeline)
	}
	if cfg.GRPCPort != 0 {
		t.Fatalf("file should disable grpc, got %d", cfg.GRPCPort)
	}
	if cfg.MetricsPort != 9999 {
		t.Fatalf("env override ignored: %d", cfg.MetricsPort)
	}
}

func TestLoadEngine_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadEngine(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadEngine: %v", err)
	}
	if cfg.Pipeline != "pipeline.yml" || cfg.GRPCPort != 7070 || cfg.MetricsPort != 9100 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
