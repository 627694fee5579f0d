package objtable

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/handle-table/errors"
)

// Options configures table geometry.
type Options struct {
	// Capacity is the total number of slots, reserved ones included.
	Capacity int `yaml:"capacity"`
	// FirstHandle is the first slot index handed out. Lower slots are never used.
	FirstHandle int `yaml:"first_handle"`
}

// DefaultOptions returns the default table configuration.
func DefaultOptions() Options {
	return Options{
		Capacity:    MaxCapacity,
		FirstHandle: 32,
	}
}

// Validate checks that the options describe a usable table.
func (o Options) Validate() error {
	if o.Capacity < 1 {
		return errors.InvalidConfig("capacity", o.Capacity, "must be positive")
	}
	if o.Capacity > MaxCapacity {
		return errors.InvalidConfig("capacity", o.Capacity, "exceeds 16-bit slot index")
	}
	if o.FirstHandle < 0 || o.FirstHandle >= o.Capacity {
		return errors.InvalidConfig("first_handle", o.FirstHandle, "must be within [0, capacity)")
	}
	return nil
}

// LoadOptions reads options from a YAML file. Missing fields keep their defaults.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read options")
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse options")
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
