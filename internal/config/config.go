// Package config holds the engine tunables, loadable from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that unmarshals from TOML strings like "20ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Engine holds the playback engine tunables.
type Engine struct {
	// TickInterval is the scheduler polling cadence.
	TickInterval Duration `toml:"tick_interval"`
	// JitterTolerance is how far the playback clock may move backward
	// before the scheduler resynchronizes.
	JitterTolerance Duration `toml:"jitter_tolerance"`
	// SampleRate is the output device sample rate in Hz.
	SampleRate int `toml:"sample_rate"`
}

// Default returns the built-in engine tunables.
func Default() Engine {
	return Engine{
		TickInterval:    Duration(20 * time.Millisecond),
		JitterTolerance: Duration(150 * time.Millisecond),
		SampleRate:      44100,
	}
}

// Load overlays a TOML file on top of the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Engine, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Engine{}, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Engine{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Engine{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects tunables the engine cannot run with.
func (e Engine) Validate() error {
	if e.TickInterval <= 0 {
		return errors.New("tick_interval must be positive")
	}
	if e.JitterTolerance < 0 {
		return errors.New("jitter_tolerance must not be negative")
	}
	if e.SampleRate < 8000 {
		return errors.New("sample_rate must be at least 8000")
	}
	return nil
}
