package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bulkd/internal/bulk"
)

// Adapter is the common behaviour every sink exposes. Write may be called
// concurrently by several workers of the same sink; worker identifies the
// caller within the sink's pool.
type Adapter interface {
	Configure(any) error // driver-specific YAML ⇒ struct
	Write(ctx context.Context, worker int, b bulk.Block) error
	Close() error // idempotent
}

// Concurrent is *optional*; sinks that want more than one drain worker
// report their default pool size through it.
type Concurrent interface {
	Workers() int
}

// Workers returns the pool size for a: the configured override when positive,
// else the driver's own default, else 1.
func Workers(a Adapter, override int) int {
	if override > 0 {
		return override
	}
	if c, ok := a.(Concurrent); ok && c.Workers() > 0 {
		return c.Workers()
	}
	return 1
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q (registered: %s)", name, strings.Join(Names(), ", "))
}

// Names lists registered drivers.
func Names() []string {
	out := make([]string, 0, len(reg))
	for n := range reg {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
