package engine

import (
	"context"
	"fmt"

	"bulkd/internal/config"
	"bulkd/internal/pipeline"
	"bulkd/internal/telemetry"
	"bulkd/internal/transport"
)

func Bootstrap(ctx context.Context, cfg config.Engine) (*Engine, error) {
	// 1. pipeline runner
	runner, err := pipeline.Compile(cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// 2. transport server
	var srv *transport.Server
	if cfg.GRPCPort > 0 {
		if srv, err = transport.StartServer(cfg.GRPCPort); err != nil {
			_ = runner.Close()
			return nil, fmt.Errorf("transport: %w", err)
		}
	}

	// 3. metrics
	e := &Engine{transport: srv, runner: runner}
	if cfg.MetricsPort > 0 {
		e.metrics = telemetry.Expose(cfg.MetricsPort)
	}

	if err := runner.Start(ctx); err != nil {
		e.shutdown()
		return nil, err
	}
	if srv != nil {
		srv.SetServing(true)
	}
	return e, nil
}
