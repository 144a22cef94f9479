package pipeline

import (
	"fmt"

	"bulkd/internal/config"
	"bulkd/internal/dispatch"
	"bulkd/internal/processor"
	"bulkd/internal/spec"
	"bulkd/sink"
	"bulkd/source"
	"bulkd/source/stdin"

	// driver registration
	_ "bulkd/sink/console"
	_ "bulkd/sink/file"
	_ "bulkd/sink/kafka"
	_ "bulkd/source/kafka"
)

// Compile builds a Runner from a pipeline YAML. The source is configured but
// not started.
func Compile(path string) (*Runner, error) {
	cfg, confPath, err := config.LoadPipelineSpec(path)
	if err != nil {
		return nil, err
	}

	lanes, err := buildSinks(cfg)
	if err != nil {
		return nil, err
	}
	disp, err := dispatch.New(lanes...)
	if err != nil {
		closeLanes(lanes)
		return nil, err
	}

	r := NewRunner(cfg.Bulk.Threshold, processor.Options{FlushOpenBlock: cfg.Bulk.FlushOpenBlock}, disp)
	src, err := buildSource(cfg, confPath)
	if err != nil {
		_ = disp.Close()
		return nil, err
	}
	r.SetSource(src)
	return r, nil
}

func buildSource(cfg spec.File, confPath string) (source.Adapter, error) {
	src, err := source.NewAdapter(cfg.Source.Kind)
	if err != nil {
		return nil, err
	}
	switch cfg.Source.Kind {
	case "stdin":
		err = src.Configure(stdin.Config{})
	case "kafka":
		kc, lerr := config.LoadKafkaConfig(confPath)
		if lerr != nil {
			return nil, lerr
		}
		err = src.Configure(kc)
	default:
		err = fmt.Errorf("no config block for source %q", cfg.Source.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", cfg.Source.Kind, err)
	}
	return src, nil
}

func buildSinks(cfg spec.File) ([]dispatch.Lane, error) {
	var lanes []dispatch.Lane
	for _, name := range cfg.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			closeLanes(lanes)
			return nil, err
		}

		switch name {
		case "console":
			err = sDrv.Configure(cfg.SinkConfigs.Console)
		case "file":
			err = sDrv.Configure(cfg.SinkConfigs.File)
		case "kafka":
			err = sDrv.Configure(cfg.SinkConfigs.Kafka)
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			closeLanes(lanes)
			return nil, fmt.Errorf("sink %s: %w", name, err)
		}
		lanes = append(lanes, dispatch.Lane{Name: name, Sink: sDrv, Workers: sink.Workers(sDrv, 0)})
	}
	return lanes, nil
}

func closeLanes(lanes []dispatch.Lane) {
	for _, l := range lanes {
		_ = l.Sink.Close()
	}
}
