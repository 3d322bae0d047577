package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

// Config holds the tool configuration
type Config struct {
	// SerialPort is the path to the bench bridge's serial port (e.g. "/dev/ttyACM0")
	SerialPort string `toml:"serial_port"`
	// BaudRate is the baud rate for the bridge link (e.g. 115200)
	BaudRate int `toml:"baud_rate"`
	// SSID is the WiFi network to join
	SSID string `toml:"ssid"`
	// Passphrase is the WiFi network passphrase
	Passphrase string `toml:"passphrase"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `toml:"log_level"`
	// Pins maps the module's control lines to bridge pin numbers
	Pins PinMap `toml:"pins"`
}

// PinMap names the bridge pins the module's control lines are wired to.
type PinMap struct {
	CS     uint8 `toml:"cs"`
	Reset  uint8 `toml:"reset"`
	Wakeup uint8 `toml:"wakeup"`
	Ready  uint8 `toml:"ready"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyACM0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.Pins = PinMap{CS: 0, Reset: 1, Wakeup: 2, Ready: 3}
		return nil
	}
}

// WithFile loads configuration from a TOML file. An empty path is a no-op.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		if _, err := toml.DecodeFile(path, c); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if port := os.Getenv("ESWIFI_SERIAL_PORT"); port != "" {
			c.SerialPort = port
		}

		if baud := os.Getenv("ESWIFI_BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if ssid := os.Getenv("ESWIFI_SSID"); ssid != "" {
			c.SSID = ssid
		}

		if pass := os.Getenv("ESWIFI_PASSPHRASE"); pass != "" {
			c.Passphrase = pass
		}

		if level := os.Getenv("ESWIFI_LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "ssid":
				c.SSID = f.Value.String()
			case "passphrase":
				c.Passphrase = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			}
		})
		return nil
	}
}
