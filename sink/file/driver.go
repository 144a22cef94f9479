// bulkd/sink/file/driver.go
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bulkd/internal/bulk"
	"bulkd/sink"
)

const defaultWorkers = 2

/* ────────── public YAML config ────────── */
type Config struct {
	Dir     string `yaml:"dir"`     // "" = working directory
	Workers int    `yaml:"workers"` // 0 = default (2)
}

// driver writes every block to bulk<unix-seconds>_<worker>.log under Dir.
// Files are opened in append mode: two blocks that map to the same name
// (same second, same worker) end up as two lines of one file.
type driver struct {
	cfg Config
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-sink: expected Config, got %T", raw)
	}
	if c.Dir == "" {
		c.Dir = "."
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("file-sink: create output directory: %w", err)
	}
	d.cfg = c
	return nil
}

func (d *driver) Write(_ context.Context, worker int, b bulk.Block) error {
	fp := filepath.Join(d.cfg.Dir, Filename(b, worker))
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("file-sink: open %s: %w", fp, err)
	}
	if _, err := fmt.Fprintln(f, bulk.Render(b)); err != nil {
		f.Close()
		return fmt.Errorf("file-sink: write %s: %w", fp, err)
	}
	return f.Close()
}

func (d *driver) Close() error { return nil }

/* ────────── sink.Concurrent ────────── */
func (d *driver) Workers() int {
	if d.cfg.Workers > 0 {
		return d.cfg.Workers
	}
	return defaultWorkers
}

// Filename names the output for b when written by worker.
func Filename(b bulk.Block, worker int) string {
	return fmt.Sprintf("bulk%d_%d.log", b.Time.Unix(), worker)
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("file", func() sink.Adapter { return &driver{} })
}
