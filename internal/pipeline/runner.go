package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"bulkd/internal/dispatch"
	"bulkd/internal/logging"
	"bulkd/internal/processor"
	"bulkd/internal/session"
	"bulkd/source"
)

// sourceGrace bounds how long Close waits for the source to hand back its
// sessions before the sinks are shut down anyway.
const sourceGrace = 5 * time.Second

// Runner wires a source to the dispatcher: every stream the source opens
// becomes a session with its own batch processor, all sharing the
// dispatcher's sink queues.
type Runner struct {
	threshold int
	opts      processor.Options
	disp      *dispatch.Dispatcher
	source    source.Adapter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	closed bool
}

func NewRunner(threshold int, opts processor.Options, disp *dispatch.Dispatcher) *Runner {
	return &Runner{threshold: threshold, opts: opts, disp: disp, done: make(chan struct{})}
}

func (r *Runner) SetSource(s source.Adapter) { r.source = s }

// Open starts a session bound to this pipeline. The caller owns it and must
// Close it when its stream ends.
func (r *Runner) Open() (*session.Session, error) {
	return session.New(r.threshold, r.disp, r.opts)
}

func (r *Runner) opener() (source.Session, error) {
	s, err := r.Open()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the source in the background. Done is closed when it returns.
func (r *Runner) Start(ctx context.Context) error {
	if r.source == nil {
		return errors.New("runner: no source configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		err := r.source.Run(ctx, r.opener)
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.L().Error("runner: source stopped", "err", err)
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
		}
	}()
	return nil
}

// Done is closed once the source has finished.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Err reports why the source stopped, if it failed.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close stops the source, waits for its sessions to tear down and then
// drains and closes every sink.
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		if r.source != nil {
			_ = r.source.Close()
		}
		select {
		case <-r.done:
		case <-time.After(sourceGrace):
			logging.L().Warn("runner: source did not stop in time; closing sinks")
		}
	}
	return r.disp.Close()
}
