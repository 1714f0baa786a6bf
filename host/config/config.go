// Package config loads upditerm settings from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"upditerm/host/serial"
	"upditerm/host/term"
	"upditerm/host/updi"
	"upditerm/protocol"
)

// Config holds the terminal settings. Command-line flags override it.
type Config struct {
	Port    string `json:"port"`
	Baud    int    `json:"baud"`
	Backend string `json:"backend"`
	Variant string `json:"variant"`

	// Escape is the escape character (0..31); nil means the default ^E
	Escape *int `json:"escape,omitempty"`

	NoKeyMap bool   `json:"no_keymap"`
	Quiet    bool   `json:"quiet"`
	Reset    bool   `json:"reset"`
	Trace    bool   `json:"trace"`
	LogFile  string `json:"log_file"`

	// Remote mirrors
	MQTT   string `json:"mqtt"`
	Listen string `json:"listen"`

	// Sim runs the demo firmware in-process instead of opening a port
	Sim bool `json:"sim"`
}

// LoadConfig parses a JSON configuration
func LoadConfig(jsonData []byte) (*Config, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	return &config, nil
}

// LoadFile reads and parses a JSON configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// Default returns the built-in configuration
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *Config) {
	if config.Baud == 0 {
		config.Baud = updi.DefaultBaud
	}
	if config.Backend == "" {
		config.Backend = string(serial.BackendBugst)
	}
	if config.Variant == "" {
		config.Variant = protocol.VariantIndependent.String()
	}
	if config.Escape == nil {
		escape := term.DefaultEscape
		config.Escape = &escape
	}
}

// EscapeChar returns the escape character
func (c *Config) EscapeChar() int {
	if c.Escape == nil {
		return term.DefaultEscape
	}
	return *c.Escape
}

// Validate checks values the JSON decoder cannot
func (c *Config) Validate() error {
	if esc := c.EscapeChar(); esc < 0 || esc > 31 {
		return fmt.Errorf("escape character %d: must be 0..31", esc)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud rate %d: must be positive", c.Baud)
	}
	if _, err := protocol.ParseVariant(c.Variant); err != nil {
		return err
	}
	switch serial.Backend(c.Backend) {
	case serial.BackendBugst, serial.BackendTarm:
	default:
		return fmt.Errorf("%w: %q", serial.ErrUnknownBackend, c.Backend)
	}
	return nil
}
