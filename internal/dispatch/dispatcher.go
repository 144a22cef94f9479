// Package dispatch fans completed blocks out to sinks. Every sink gets its
// own queue and a fixed pool of workers started once; a drain request makes
// every worker pop and write until its queue is empty, and the caller waits
// for all of them to acknowledge.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"bulkd/internal/bulk"
	"bulkd/internal/logging"
	"bulkd/internal/queue"
	"bulkd/internal/telemetry"
	"bulkd/sink"
)

// Lane describes one sink and the number of workers draining its queue.
type Lane struct {
	Name    string
	Sink    sink.Adapter
	Workers int
}

type lane struct {
	name string
	out  sink.Adapter
	q    *queue.Queue[bulk.Block]
	reqs []chan chan struct{} // one per worker; the inner channel is the ack
}

type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	g      *errgroup.Group

	mu     sync.RWMutex // write-held only by Close
	lanes  []*lane
	closed bool
}

// New starts the worker pools for lanes. Lane names must be unique.
func New(lanes ...Lane) (*Dispatcher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{ctx: ctx, cancel: cancel, g: &errgroup.Group{}}

	seen := make(map[string]bool, len(lanes))
	for _, cfg := range lanes {
		if cfg.Sink == nil {
			cancel()
			return nil, fmt.Errorf("dispatch: sink %q is nil", cfg.Name)
		}
		if seen[cfg.Name] {
			cancel()
			return nil, fmt.Errorf("dispatch: duplicate sink %q", cfg.Name)
		}
		seen[cfg.Name] = true

		workers := cfg.Workers
		if workers <= 0 {
			workers = 1
		}
		l := &lane{name: cfg.Name, out: cfg.Sink, q: queue.New[bulk.Block]()}
		for id := 0; id < workers; id++ {
			reqs := make(chan chan struct{})
			l.reqs = append(l.reqs, reqs)
			d.g.Go(func() error {
				for ack := range reqs {
					l.drain(d.ctx, id)
					close(ack)
				}
				return nil
			})
		}
		d.lanes = append(d.lanes, l)
		logging.L().Info("dispatch: sink started", "sink", cfg.Name, "workers", workers)
	}
	return d, nil
}

// Push queues b for every sink. It never blocks on sink I/O.
func (d *Dispatcher) Push(b bulk.Block) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		logging.L().Warn("dispatch: block pushed after close dropped", "commands", b.Len())
		return
	}
	for _, l := range d.lanes {
		telemetry.QueueDepth.WithLabelValues(l.name).Inc()
		l.q.Push(b)
	}
}

// Drain asks every worker of every sink to empty its queue and returns once
// all of them are done. Calling it on empty queues writes nothing.
func (d *Dispatcher) Drain() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	d.drainAll()
}

func (d *Dispatcher) drainAll() {
	var acks []chan struct{}
	for _, l := range d.lanes {
		for _, reqs := range l.reqs {
			ack := make(chan struct{})
			reqs <- ack
			acks = append(acks, ack)
		}
	}
	for _, ack := range acks {
		<-ack
	}
}

// Pending reports how many blocks wait in the named sink's queue.
func (d *Dispatcher) Pending(name string) int {
	for _, l := range d.lanes {
		if l.name == name {
			return l.q.Len()
		}
	}
	return 0
}

// Close drains once more, stops the workers and closes every sink.
// Later calls are no-ops.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	d.drainAll()
	for _, l := range d.lanes {
		for _, reqs := range l.reqs {
			close(reqs)
		}
	}
	_ = d.g.Wait()
	d.cancel()

	var result *multierror.Error
	for _, l := range d.lanes {
		l.q.Close()
		if err := l.out.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("sink %s: %w", l.name, err))
		}
	}
	return result.ErrorOrNil()
}

// drain pops until the queue is observed empty. Write failures stay here:
// they are logged and counted, never retried or returned.
func (l *lane) drain(ctx context.Context, worker int) {
	for {
		b, ok := l.q.TryPop()
		if !ok {
			return
		}
		telemetry.QueueDepth.WithLabelValues(l.name).Dec()
		if err := l.out.Write(ctx, worker, b); err != nil {
			telemetry.SinkErrors.WithLabelValues(l.name).Inc()
			logging.L().Error("dispatch: sink write failed", "sink", l.name, "worker", worker, "err", err)
			continue
		}
		telemetry.SinkWrites.WithLabelValues(l.name).Inc()
	}
}
