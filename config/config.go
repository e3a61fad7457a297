package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/btbroker/sim"
	"gopkg.in/yaml.v3"
)

// Config represents the complete run configuration
type Config struct {
	Broker  BrokerConfig  `json:"broker" yaml:"broker"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Replay  ReplayConfig  `json:"replay" yaml:"replay"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// BrokerConfig contains the account and margin policy
type BrokerConfig struct {
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	FeeRate     float64 `json:"fee_rate" yaml:"fee_rate"`
	Leverage    float64 `json:"leverage" yaml:"leverage"`
	MarginMode  string  `json:"margin_mode" yaml:"margin_mode"` // "cross" or "isolated"
}

// SimConfig converts the section into the broker's own config.
func (b BrokerConfig) SimConfig() (sim.Config, error) {
	mode, err := sim.ParseMarginMode(b.MarginMode)
	if err != nil {
		return sim.Config{}, err
	}
	cfg := sim.Config{
		InitialCash: b.InitialCash,
		FeeRate:     b.FeeRate,
		Leverage:    b.Leverage,
		MarginMode:  mode,
	}
	return cfg, cfg.Validate()
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	FillsFile  string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ReplayConfig points at the tick/event file a run replays
type ReplayConfig struct {
	TicksFile string `json:"ticks_file" yaml:"ticks_file"`
	From      string `json:"from,omitempty" yaml:"from,omitempty"` // RFC3339, inclusive
	To        string `json:"to,omitempty" yaml:"to,omitempty"`     // RFC3339, exclusive
	CloseEnd  bool   `json:"close_end" yaml:"close_end"`
}

// Window parses From and To. Empty bounds come back as zero times.
func (r ReplayConfig) Window() (from, to time.Time, err error) {
	if r.From != "" {
		if from, err = time.Parse(time.RFC3339, r.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("replay.from: %w", err)
		}
	}
	if r.To != "" {
		if to, err = time.Parse(time.RFC3339, r.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("replay.to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("replay.to must be after replay.from")
	}
	return from, to, nil
}

// LogConfig sets the slog level
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := c.Broker.SimConfig(); err != nil {
		return fmt.Errorf("broker: %w", err)
	}

	switch c.Journal.Type {
	case "none", "":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if c.Replay.TicksFile == "" {
		return fmt.Errorf("replay.ticks_file is required")
	}
	if _, _, err := c.Replay.Window(); err != nil {
		return err
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			InitialCash: 10000,
			FeeRate:     0.001,
			Leverage:    1,
			MarginMode:  "cross",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./btbroker.db",
		},
		Replay: ReplayConfig{
			TicksFile: "./ticks.csv",
			CloseEnd:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
