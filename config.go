package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "~/.config/cec-input/config.yaml"

// Config represents the complete application configuration
type Config struct {
	RetroArchConfig string `yaml:"retroarch_config" toml:"retroarch_config"`
	CECClient       struct {
		Command       string   `yaml:"command" toml:"command"`
		Args          []string `yaml:"args" toml:"args"`
		ShutdownGrace int      `yaml:"shutdown_grace" toml:"shutdown_grace"`
	} `yaml:"cec_client" toml:"cec_client"`
	Startup struct {
		PowerOnDelay      int `yaml:"power_on_delay" toml:"power_on_delay"`
		ActiveSourceDelay int `yaml:"active_source_delay" toml:"active_source_delay"`
	} `yaml:"startup" toml:"startup"`
	Input struct {
		Backend          string `yaml:"backend" toml:"backend"`
		DeviceName       string `yaml:"device_name" toml:"device_name"`
		RegisterAttempts int    `yaml:"register_attempts" toml:"register_attempts"`
		RegisterDelay    int    `yaml:"register_delay" toml:"register_delay"`
		SettleDelay      int    `yaml:"settle_delay" toml:"settle_delay"`
	} `yaml:"input" toml:"input"`
	Notifications struct {
		Enabled    bool `yaml:"enabled" toml:"enabled"`
		ShowErrors bool `yaml:"show_errors" toml:"show_errors"`
	} `yaml:"notifications" toml:"notifications"`
	Logging struct {
		Directory string `yaml:"directory" toml:"directory"`
	} `yaml:"logging" toml:"logging"`
	SingleInstance bool `yaml:"single_instance" toml:"single_instance"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	config := &Config{}

	config.RetroArchConfig = "/opt/retropie/configs/all/retroarch.cfg"

	// cec-client defaults
	config.CECClient.Command = "cec-client"
	config.CECClient.Args = []string{"RPI", "--osd-name", "Retropie"}
	config.CECClient.ShutdownGrace = 5

	// Startup script defaults
	config.Startup.PowerOnDelay = 3
	config.Startup.ActiveSourceDelay = 3

	// Input device defaults
	config.Input.Backend = BackendKeybd
	config.Input.DeviceName = "cec-input"
	config.Input.RegisterAttempts = 3
	config.Input.RegisterDelay = 1
	config.Input.SettleDelay = 2

	// Notifications are off on a console-only setup
	config.Notifications.Enabled = false
	config.Notifications.ShowErrors = true

	config.SingleInstance = true

	return config
}

// LoadConfig loads the configuration file at path over the defaults.
// A missing file is only an error when explicit is set.
func LoadConfig(path string, explicit bool) (*Config, error) {
	config := DefaultConfig()

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	if _, err := os.Stat(expanded); err == nil {
		if err := loadConfigFromFile(config, expanded); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.expandPaths(); err != nil {
		return nil, err
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile decodes YAML, or TOML when the file ends in .toml
func loadConfigFromFile(config *Config, filename string) error {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(absPath), ".toml") {
		return toml.Unmarshal(data, config)
	}
	return yaml.Unmarshal(data, config)
}

func (c *Config) expandPaths() error {
	var err error
	if c.RetroArchConfig, err = homedir.Expand(c.RetroArchConfig); err != nil {
		return fmt.Errorf("failed to expand retroarch_config: %w", err)
	}
	if c.Logging.Directory, err = homedir.Expand(c.Logging.Directory); err != nil {
		return fmt.Errorf("failed to expand logging directory: %w", err)
	}
	return nil
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if config.RetroArchConfig == "" {
		return fmt.Errorf("retroarch_config cannot be empty")
	}

	if config.CECClient.Command == "" {
		return fmt.Errorf("cec_client command cannot be empty")
	}

	if config.CECClient.ShutdownGrace < 0 {
		return fmt.Errorf("shutdown grace must be non-negative, got: %d", config.CECClient.ShutdownGrace)
	}

	if config.Startup.PowerOnDelay < 0 {
		return fmt.Errorf("power on delay must be non-negative, got: %d", config.Startup.PowerOnDelay)
	}

	if config.Startup.ActiveSourceDelay < 0 {
		return fmt.Errorf("active source delay must be non-negative, got: %d", config.Startup.ActiveSourceDelay)
	}

	switch config.Input.Backend {
	case BackendKeybd, BackendEvdev:
	default:
		return fmt.Errorf("input backend must be %q or %q, got: %q", BackendKeybd, BackendEvdev, config.Input.Backend)
	}

	if config.Input.DeviceName == "" {
		return fmt.Errorf("input device name cannot be empty")
	}

	if config.Input.RegisterAttempts < 1 {
		return fmt.Errorf("register attempts must be at least 1, got: %d", config.Input.RegisterAttempts)
	}

	if config.Input.RegisterDelay < 0 {
		return fmt.Errorf("register delay must be non-negative, got: %d", config.Input.RegisterDelay)
	}

	if config.Input.SettleDelay < 0 {
		return fmt.Errorf("settle delay must be non-negative, got: %d", config.Input.SettleDelay)
	}

	return nil
}
