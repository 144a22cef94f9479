// Package source defines the input adapters that turn an external stream
// into sessions of timestamped commands.
package source

import (
	"context"
	"fmt"
	"time"

	"bulkd/internal/bulk"
)

// Session is one logical input stream as seen by an adapter.
type Session interface {
	ID() string
	Handle(bulk.Command)
	Receive(data string, now time.Time)
	Close()
}

// Opener starts a new session; the adapter must Close it when its stream ends.
type Opener func() (Session, error)

type Adapter interface {
	Configure(any) error
	Run(ctx context.Context, open Opener) error
	Close() error
}

/*──────── registry ───────*/

// Factory builds an Adapter ("stdin", "kafka", …).
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(name string, f Factory) {
	registry[name] = f
}

func NewAdapter(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("source: unsupported kind %q", name)
}
