package latency

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/naoina/toml"
)

// TimingConfig holds the tunable timing parameters of the pipeline.
type TimingConfig struct {
	// MultiplyLatency is the number of cycles MUL occupies the execute unit.
	// Default: 2 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// ClockGHz is the core clock used when the pipeline is driven by an event
	// engine. Default: 1 GHz.
	ClockGHz float64 `json:"clock_ghz"`

	// MaxCycles bounds a run. 0 means no limit.
	MaxCycles uint64 `json:"max_cycles"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		MultiplyLatency: 2,
		ClockGHz:        1,
	}
}

// TOML keys use the same names as the Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads a TimingConfig from a file. Files ending in .toml are read
// as TOML, anything else as JSON. Fields missing from the file keep their
// default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if isTOML(path) {
		err = tomlSettings.NewDecoder(bytes.NewReader(data)).Decode(config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse timing config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a file, choosing the format from the
// extension the same way LoadConfig does.
func (c *TimingConfig) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = c.MarshalTOML()
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// MarshalTOML renders the configuration as TOML.
func (c *TimingConfig) MarshalTOML() ([]byte, error) {
	return tomlSettings.Marshal(c)
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid timing config")

// Validate checks that the timing values are usable.
func (c *TimingConfig) Validate() error {
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("%w: multiply_latency must be > 0", ErrInvalidConfig)
	}
	if c.ClockGHz <= 0 {
		return fmt.Errorf("%w: clock_ghz must be > 0", ErrInvalidConfig)
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
