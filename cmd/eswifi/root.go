package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edgewire/eswifi"
	"github.com/edgewire/eswifi/probe"
)

var rootCmd = &cobra.Command{
	Use:   "eswifi",
	Short: "Drive an eS-WiFi module wired to a bench serial bridge",
	Long: `eswifi talks to an eS-WiFi companion module through a USB serial
bridge. It joins the configured WiFi network and can run simple socket
operations against it, as a bring-up and smoke-test tool.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to a TOML config file")
	pf.String("serial-port", "/dev/ttyACM0", "serial port of the bench bridge")
	pf.Int("baud-rate", 115200, "baud rate for the bridge link")
	pf.String("ssid", "", "WiFi network to join")
	pf.String("passphrase", "", "WiFi network passphrase")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return LoadConfig(
		WithDefaults(),
		WithFile(path),
		WithEnv(),
		WithFlags(cmd.Flags()),
	)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger()
}

// bringUp opens the bridge, boots the module and joins the network. The
// caller owns both returned handles and must close the probe when done.
func bringUp(ctx context.Context, config *Config, logger zerolog.Logger) (*eswifi.Driver, *probe.Probe, error) {
	prb, err := probe.Open(config.SerialPort, config.BaudRate)
	if err != nil {
		return nil, nil, err
	}

	drv, err := eswifi.New(ctx,
		prb.Bus(),
		prb.OutputPin(config.Pins.CS),
		prb.OutputPin(config.Pins.Reset),
		prb.OutputPin(config.Pins.Wakeup),
		prb.ReadyPin(config.Pins.Ready),
		eswifi.Config{
			SSID:       config.SSID,
			Passphrase: config.Passphrase,
			Logger:     &logger,
		},
	)
	if err != nil {
		prb.Close()
		return nil, nil, fmt.Errorf("bring up adapter: %w", err)
	}
	return drv, prb, nil
}
