// Package config loads bus/servo configuration for the operator tools
// from a JSON file.
package config

import (
	"encoding/json"
	"os"
)

// DefaultConfigFile is the config file name feetech-cli reads and writes
// in the current directory.
const DefaultConfigFile = "servobus.json"

// Config is the bus and servo-set configuration saved and loaded by
// feetech-cli.
type Config struct {
	Port        string         `json:"port"`
	BaudRate    int            `json:"baud_rate"`
	Model       string         `json:"model,omitempty"`
	TimeoutMs   int            `json:"timeout_ms,omitempty"`
	ServoIDs    []int          `json:"servo_ids"`
	MotorNames  map[int]string `json:"motor_names,omitempty"`
	Calibration string         `json:"calibration_file,omitempty"`
}

// LoadConfig loads configuration from DefaultConfigFile.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 1_000_000
	}
	if cfg.TimeoutMs == 0 {
		cfg.TimeoutMs = 1000
	}
	return &cfg, nil
}

// Save saves configuration to DefaultConfigFile.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if DefaultConfigFile exists in the current directory.
func Exists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
