// bulkd/sink/console/driver.go
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"bulkd/internal/bulk"
	"bulkd/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	Workers int       `yaml:"workers"` // 0 = default (1)
	Out     io.Writer `yaml:"-"`       // nil = os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu sync.Mutex // serialises lines on cfg.Out
}

func New(w io.Writer) sink.Adapter { return &driver{cfg: Config{Out: w}} }

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("console-sink: expected Config, got %T", raw)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Write(_ context.Context, _ int, b bulk.Block) error {
	out := d.cfg.Out
	if out == nil {
		out = os.Stdout
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintln(out, bulk.Render(b))
	return err
}

func (d *driver) Close() error { return nil }

/* ────────── sink.Concurrent ────────── */
func (d *driver) Workers() int {
	if d.cfg.Workers > 0 {
		return d.cfg.Workers
	}
	return 1
}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("console", func() sink.Adapter { return &driver{} })
}
