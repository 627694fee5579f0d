package main

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/handle-table/errors"
	"github.com/wippyai/handle-table/objtable"
	"github.com/wippyai/handle-table/snapshot"
)

// Config is the handlectl configuration file.
type Config struct {
	Log      LogConfig        `yaml:"log"`
	Snapshot SnapshotConfig   `yaml:"snapshot"`
	Table    objtable.Options `yaml:"table"`
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// SnapshotConfig controls where the final table snapshot goes.
type SnapshotConfig struct {
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

func defaultConfig() Config {
	return Config{
		Table:    objtable.DefaultOptions(),
		Log:      LogConfig{Level: "warn"},
		Snapshot: SnapshotConfig{Format: string(snapshot.FormatText)},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse config")
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if err := c.Table.Validate(); err != nil {
		return err
	}
	if _, err := snapshot.ParseFormat(c.Snapshot.Format); err != nil {
		return err
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.InvalidConfig("log.level", c.Log.Level, err.Error())
	}
	return nil
}

func (c Config) logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.InvalidConfig("log.level", c.Log.Level, err.Error())
	}
	zc.Level = level
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
