package engine

import (
	"context"
	"net/http"
	"time"

	"bulkd/internal/logging"
	"bulkd/internal/pipeline"
	"bulkd/internal/transport"
)

type Engine struct {
	transport *transport.Server
	metrics   *http.Server
	runner    *pipeline.Runner
}

// Run blocks until ctx is cancelled or the source runs dry, then flushes the
// pipeline and stops the listeners.
func (e *Engine) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	if e.transport != nil {
		go func() { serveErr <- e.transport.Serve() }()
	}

	var err error
	select {
	case <-ctx.Done():
		logging.L().Info("engine: shutdown requested")
	case <-e.runner.Done():
		err = e.runner.Err()
		logging.L().Info("engine: source finished")
	case err = <-serveErr:
		logging.L().Error("engine: transport stopped", "err", err)
	}

	if cerr := e.shutdown(); err == nil {
		err = cerr
	}
	return err
}

func (e *Engine) shutdown() error {
	if e.transport != nil {
		e.transport.SetServing(false)
	}
	err := e.runner.Close()
	if e.transport != nil {
		e.transport.Stop()
	}
	if e.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = e.metrics.Shutdown(ctx)
	}
	return err
}
