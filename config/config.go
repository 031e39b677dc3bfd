// Package config holds the list of modules a run dumps.
package config

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const DefaultPath = "config.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	DumpModules bool     `json:"dump_modules"`
	Modules     []string `json:"modules"`

	// keys absent from the loaded file
	missing []string
}

// Default returns the built-in configuration for the current platform.
func Default() *Config {
	return &Config{
		DumpModules: true,
		Modules:     append([]string(nil), DefaultModules...),
	}
}

// Enabled reports whether a run has anything to dump. A null module list and
// dump_modules=false both disable dumping.
func (c *Config) Enabled() bool {
	return c != nil && c.DumpModules && c.Modules != nil
}

func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	for _, key := range []string{"dump_modules", "modules"} {
		if json.Get(data, key).ValueType() == jsoniter.InvalidValue {
			cfg.missing = append(cfg.missing, key)
		}
	}
	return &cfg, nil
}

// Missing lists the keys the loaded file didn't set. They keep their zero
// value, so a file without dump_modules dumps nothing.
func (c *Config) Missing() []string {
	return c.missing
}

func (c *Config) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	if err := afero.WriteFile(fs, path, append(data, '\n'), 0o644); err != nil {
		return errors.Wrap(err, "write config")
	}
	return nil
}

// LoadOrCreate loads the config at path. If it is missing or unreadable the
// default config is written in its place and returned; failing to write it is
// only logged.
func LoadOrCreate(fs afero.Fs, path string, logger log.Logger) *Config {
	cfg, err := Load(fs, path)
	if err == nil {
		for _, key := range cfg.Missing() {
			level.Warn(logger).Log("msg", "config key missing, using zero value", "path", path, "key", key)
		}
		return cfg
	}

	level.Info(logger).Log("msg", "using default config", "path", path, "reason", err)
	cfg = Default()
	if err := cfg.Save(fs, path); err != nil {
		level.Warn(logger).Log("msg", "failed to save default config", "path", path, "err", err)
	}
	return cfg
}
