// Package config loads the TOML configuration shared by the server and the
// CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/CK6170/calunc-go/budget"
	"github.com/CK6170/calunc-go/modern"
	"github.com/CK6170/calunc-go/serial"
	"github.com/CK6170/calunc-go/uncertainty"
)

type Config struct {
	Server  Server  `toml:"server"`
	Log     Log     `toml:"log"`
	Store   Store   `toml:"store"`
	Budget  Budget  `toml:"budget"`
	Balance Balance `toml:"balance"`
}

type Server struct {
	Addr    string `toml:"addr"`
	WebRoot string `toml:"web_root"`
}

type Log struct {
	Level string `toml:"level"`
}

// Store selects the records backend: "memory" or "sqlite".
type Store struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

type Budget struct {
	CoverageFactor float64 `toml:"coverage_factor"`
	// CMCFactor is the relative factor of the fallback cmc tolerance.
	CMCFactor float64 `toml:"cmc_factor"`
}

type Balance struct {
	Port      string `toml:"port"`
	Baud      int    `toml:"baud"`
	TimeoutMS int    `toml:"timeout_ms"`
}

func Default() Config {
	return Config{
		Server:  Server{Addr: ":8080", WebRoot: "./web"},
		Log:     Log{Level: "info"},
		Store:   Store{Driver: "memory", Path: "calunc.db"},
		Budget:  Budget{CoverageFactor: uncertainty.DefaultCoverageFactor},
		Balance: Balance{Baud: 9600, TimeoutMS: 2000},
	}
}

// DefaultPath is ~/.calunc/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".calunc", "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		return fmt.Errorf("sqlite store needs a path")
	}
	if c.Budget.CoverageFactor < 0 {
		return fmt.Errorf("coverage_factor must be >= 0")
	}
	if c.Budget.CMCFactor < 0 {
		return fmt.Errorf("cmc_factor must be >= 0")
	}
	return nil
}

// Save writes the config as TOML, creating the directory.
func Save(path string, c Config) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// CalcOptions turns the budget section into calculator options.
func (c Config) CalcOptions() modern.Options {
	opts := modern.DefaultOptions()
	if c.Budget.CoverageFactor > 0 {
		opts.Uncertainty.CoverageFactor = c.Budget.CoverageFactor
	}
	opts.Fallback = budget.Spec{Strategy: "cmc", Params: map[string]any{"relativeFactor": c.Budget.CMCFactor}}
	return opts
}

func (c Config) SerialConfig() serial.Config {
	return serial.Config{
		Port:    c.Balance.Port,
		Baud:    c.Balance.Baud,
		Timeout: time.Duration(c.Balance.TimeoutMS) * time.Millisecond,
	}
}
