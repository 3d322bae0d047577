package eswifi

import (
	"time"

	"github.com/rs/zerolog"
)

// Config carries the network credentials and the recovery tuning knobs for
// the driver. The zero value of every tuning field selects the default; only
// SSID and Passphrase are mandatory.
type Config struct {
	// SSID is the network name to join during New.
	SSID string
	// Passphrase is the network passphrase.
	Passphrase string

	// Logger receives driver diagnostics. Nil disables logging.
	Logger *zerolog.Logger

	// ConnectTimeout bounds a whole Dial, including retries, and also
	// bounds each individual connect attempt.
	ConnectTimeout time.Duration
	// ConnectBackoff is the pause between failed connect attempts.
	ConnectBackoff time.Duration

	// CloseTimeout bounds each deferred close attempt in the control loop.
	CloseTimeout time.Duration
	// CloseRetries is the number of close attempts before the control
	// loop escalates to a full adapter reset.
	CloseRetries int
	// CloseBackoff is the pause between failed close attempts.
	CloseBackoff time.Duration
}

func (c *Config) validate() error {
	if c.SSID == "" || c.Passphrase == "" {
		return ErrNoCredentials
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 60 * time.Second
	}
	if c.ConnectBackoff == 0 {
		c.ConnectBackoff = 100 * time.Millisecond
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = 10 * time.Second
	}
	if c.CloseRetries == 0 {
		c.CloseRetries = 3
	}
	if c.CloseBackoff == 0 {
		c.CloseBackoff = 50 * time.Millisecond
	}
}
