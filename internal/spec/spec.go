package spec

import (
	"bulkd/sink/console"
	"bulkd/sink/file"
	"bulkd/sink/kafka"
)

type sinkConfigs struct {
	Console console.Config `yaml:"console"`
	File    file.Config    `yaml:"file"`
	Kafka   kafka.Config   `yaml:"kafka"`
}

type BulkSpec struct {
	// Commands per automatic block. Required, must be positive.
	Threshold int `yaml:"threshold"`
	// Emit an explicit block still open when its session ends instead of
	// dropping it.
	FlushOpenBlock bool `yaml:"flush_open_block"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Bulk BulkSpec `yaml:"bulk"`

	Source struct {
		Kind   string `yaml:"kind"`   // stdin|kafka
		Config string `yaml:"config"` // kafka only
	} `yaml:"source"`

	// Ordered list of sinks every block is fanned out to.
	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`
}
