// Package processor implements the batching state machine: commands are
// accumulated and emitted as blocks either when the bulk threshold is reached
// or when an explicit block is closed.
package processor

import (
	"errors"

	"bulkd/internal/bulk"
	"bulkd/internal/logging"
	"bulkd/internal/telemetry"
)

var ErrInvalidThreshold = errors.New("processor: bulk threshold must be positive")

// Emitter receives completed blocks. Drain is called after every flush and
// must return once everything queued so far has been handed to the sinks.
type Emitter interface {
	Push(bulk.Block)
	Drain()
}

type Options struct {
	// FlushOpenBlock makes Close emit the contents of an explicit block that
	// was never closed. By default such content is dropped.
	FlushOpenBlock bool
}

// Processor is not safe for concurrent use; one session drives it.
type Processor struct {
	threshold int
	out       Emitter
	opts      Options

	forced  bool
	pending []bulk.Command
}

func New(threshold int, out Emitter, opts Options) (*Processor, error) {
	if threshold <= 0 {
		return nil, ErrInvalidThreshold
	}
	return &Processor{
		threshold: threshold,
		out:       out,
		opts:      opts,
		pending:   make([]bulk.Command, 0, threshold),
	}, nil
}

// Process appends cmd. Outside an explicit block the pending commands are
// flushed as soon as the threshold is reached.
func (p *Processor) Process(cmd bulk.Command) {
	p.pending = append(p.pending, cmd)
	telemetry.CommandsTotal.Inc()
	if !p.forced && len(p.pending) >= p.threshold {
		p.flush(telemetry.ReasonSize)
	}
}

// StartBlock flushes whatever is pending and enters explicit mode, so
// commands before the marker never merge with the ones inside it.
func (p *Processor) StartBlock() {
	p.forced = true
	p.flush(telemetry.ReasonExplicit)
}

// FinishBlock leaves explicit mode and emits the block's contents.
func (p *Processor) FinishBlock() {
	p.forced = false
	p.flush(telemetry.ReasonExplicit)
}

func (p *Processor) Forced() bool { return p.forced }

func (p *Processor) Pending() int { return len(p.pending) }

// Close flushes pending commands once. An explicit block that is still open
// is abandoned unless Options.FlushOpenBlock is set.
func (p *Processor) Close() {
	if p.forced && !p.opts.FlushOpenBlock {
		if n := len(p.pending); n > 0 {
			logging.L().Warn("processor: dropping unterminated block", "commands", n)
		}
		p.pending = p.pending[:0]
		return
	}
	p.forced = false
	p.flush(telemetry.ReasonTeardown)
}

// flush hands the pending commands to the emitter as one block, clears the
// accumulator and requests a drain. The drain is requested even when nothing
// was pending so blocks left queued by earlier flushes still go out.
func (p *Processor) flush(reason string) {
	if len(p.pending) > 0 {
		p.out.Push(bulk.NewBlock(p.pending))
		telemetry.BlocksTotal.WithLabelValues(reason).Inc()
	}
	p.pending = p.pending[:0]
	p.out.Drain()
}
