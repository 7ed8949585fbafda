// Package config loads padalive's optional TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/stigoleg/pad-alive/internal/gamepad"
	"github.com/stigoleg/pad-alive/internal/logging"
	"github.com/stigoleg/pad-alive/internal/platform"
	"github.com/stigoleg/pad-alive/internal/util"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Environment variables that override the file.
const (
	EnvDevice   = "PADALIVE_DEVICE"
	EnvBackend  = "PADALIVE_BACKEND"
	EnvLogLevel = "PADALIVE_LOG_LEVEL"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the runtime settings. Timing thresholds are fixed and not
// part of it.
type Config struct {
	// Device is an explicit event node; empty means discover one.
	Device string `toml:"device"`
	// DeviceDir is the by-id directory searched during discovery.
	DeviceDir string `toml:"device_dir"`
	Backend   string `toml:"backend"`
	// Poll selects the fixed-cadence loop instead of waiting for input.
	Poll      bool   `toml:"poll"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DeviceDir: gamepad.DefaultByIDDir,
		Backend:   platform.BackendAuto,
		LogLevel:  "info",
		LogFormat: FormatConsole,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/padalive/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "padalive", "config.toml"), nil
}

// Load reads path on top of the defaults. A missing file is only an error
// when required is set, i.e. the user named it explicitly.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return Default(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PADALIVE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDevice); v != "" {
		c.Device = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks enumerated fields and expands "~" in paths.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(platform.Backends(), c.Backend) {
		errs = append(errs, fmt.Errorf("%w: backend %q (want one of %s)",
			ErrInvalid, c.Backend, strings.Join(platform.Backends(), ", ")))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.LogFormat != FormatConsole && c.LogFormat != FormatJSON {
		errs = append(errs, fmt.Errorf("%w: log format %q (want %s or %s)",
			ErrInvalid, c.LogFormat, FormatConsole, FormatJSON))
	}
	if c.DeviceDir == "" {
		errs = append(errs, fmt.Errorf("%w: device_dir is empty", ErrInvalid))
	}

	for _, p := range []*string{&c.Device, &c.DeviceDir, &c.LogFile} {
		expanded, err := util.ExpandHome(*p)
		if err != nil {
			errs = append(errs, fmt.Errorf("expand %q: %w", *p, err))
			continue
		}
		*p = expanded
	}

	return errors.Join(errs...)
}
