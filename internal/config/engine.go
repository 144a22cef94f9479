package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const engineEnvPrefix = "BULKD_"

// Engine holds process-level settings. Zero ports disable the listener.
type Engine struct {
	Pipeline    string `koanf:"pipeline"`
	GRPCPort    int    `koanf:"grpc_port"`
	MetricsPort int    `koanf:"metrics_port"`
}

// LoadEngine reads an optional YAML file, then a .env file in the working
// directory, then BULKD_* variables (delimiter `__`). Later sources win.
func LoadEngine(path string) (Engine, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Engine{}, err
		}
	}

	_ = godotenv.Load()
	_ = k.Load(env.Provider(engineEnvPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, engineEnvPrefix))
	}), nil)

	cfg := Engine{Pipeline: "pipeline.yml", GRPCPort: 7070, MetricsPort: 9100}
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
