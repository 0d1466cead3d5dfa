// Package config loads device configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/TheusHen/unabto-go/unabto"
	"github.com/TheusHen/unabto-go/unabto/logging"
	"github.com/TheusHen/unabto-go/unabto/runloop"
	"github.com/TheusHen/unabto-go/unabto/stack"
	"github.com/TheusHen/unabto-go/unabto/stack/local"
)

var ErrTickInterval = errors.New("config: tick interval out of range")

// File is the on-disk configuration of a device.
type File struct {
	Device DeviceConfig   `toml:"device"`
	Local  LocalConfig    `toml:"local"`
	Log    logging.Config `toml:"log"`
	// TickIntervalMS is how often the run loop ticks the stack.
	TickIntervalMS int `toml:"tick_interval_ms"`
}

type DeviceConfig struct {
	ID           string `toml:"id"`
	PresharedKey string `toml:"preshared_key"`
	// StrictKey rejects keys that are not exactly 32 hex digits.
	StrictKey bool `toml:"strict_key"`
}

type LocalConfig struct {
	Listen          string `toml:"listen"`
	MaxResponseSize int    `toml:"max_response_size"`
	QueueSize       int    `toml:"queue_size"`
	MaxPerTick      int    `toml:"max_per_tick"`
}

func Default() File {
	return File{
		Local: LocalConfig{
			Listen:          stack.DefaultLocalAddr,
			MaxResponseSize: local.DefaultMaxResponseSize,
			QueueSize:       local.DefaultQueueSize,
			MaxPerTick:      local.DefaultMaxPerTick,
		},
		Log:            logging.DefaultConfig(),
		TickIntervalMS: int(runloop.DefaultInterval / time.Millisecond),
	}
}

// Load reads a TOML file on top of Default and validates the result.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (File, error) {
	f := Default()
	if err := toml.Unmarshal(b, &f); err != nil {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	if f.Device.ID == "" {
		return fmt.Errorf("config: device: %w", unabto.ErrMissingID)
	}
	if f.Device.StrictKey {
		if err := f.Unabto().Validate(); err != nil {
			return fmt.Errorf("config: device: %w", err)
		}
	}
	if f.TickIntervalMS <= 0 || time.Duration(f.TickIntervalMS)*time.Millisecond > runloop.DefaultInterval {
		return fmt.Errorf("%w: %dms", ErrTickInterval, f.TickIntervalMS)
	}
	if err := f.Log.Validate(); err != nil {
		return fmt.Errorf("config: log: %w", err)
	}
	return nil
}

// Unabto returns the facade configuration.
func (f File) Unabto() unabto.Config {
	return unabto.Config{ID: f.Device.ID, PresharedKey: f.Device.PresharedKey}
}

func (f File) TickInterval() time.Duration {
	return time.Duration(f.TickIntervalMS) * time.Millisecond
}

// LocalOptions returns the local stack options described by the file.
func (f File) LocalOptions() []local.Option {
	return []local.Option{
		local.WithListenAddr(f.Local.Listen),
		local.WithMaxResponseSize(f.Local.MaxResponseSize),
		local.WithQueueSize(f.Local.QueueSize),
		local.WithMaxPerTick(f.Local.MaxPerTick),
	}
}

// FacadeOptions returns the facade options described by the file.
func (f File) FacadeOptions() []unabto.Option {
	var opts []unabto.Option
	if f.Device.StrictKey {
		opts = append(opts, unabto.WithStrictPresharedKey())
	}
	return opts
}
