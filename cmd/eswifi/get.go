package main

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// idlePolls bounds how long get keeps polling a connection that returns no
// data before deciding the remote is done.
const idlePolls = 50

var getCmd = &cobra.Command{
	Use:   "get <ip:port> [path]",
	Short: "Fetch a URL path over a module socket and print the response",
	Long: `get opens a TCP socket through the module, sends a minimal
HTTP/1.0 request and streams whatever comes back to stdout. It exists to
exercise the full connect/write/read/close path end to end.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := netip.ParseAddrPort(args[0])
		if err != nil {
			return fmt.Errorf("parse remote %q: %w", args[0], err)
		}
		path := "/"
		if len(args) == 2 {
			path = args[1]
		}

		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(config.LogLevel)

		ctx := cmd.Context()
		drv, prb, err := bringUp(ctx, config, logger)
		if err != nil {
			return err
		}
		defer prb.Close()
		go drv.Run(ctx)

		sock, err := drv.Dial(ctx, remote)
		if err != nil {
			return fmt.Errorf("dial %s: %w", remote, err)
		}
		defer sock.Close()

		req := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", path, remote.Addr())
		if _, err := sock.Write([]byte(req)); err != nil {
			return fmt.Errorf("send request: %w", err)
		}

		buf := make([]byte, 1024)
		idle := 0
		for idle < idlePolls {
			n, err := sock.Read(buf)
			if n > 0 {
				idle = 0
				os.Stdout.Write(buf[:n])
				continue
			}
			if err != nil {
				// The remote closing the connection surfaces as a
				// read error once all data has been drained.
				if errors.Is(err, ctx.Err()) {
					return err
				}
				return nil
			}
			idle++
			time.Sleep(100 * time.Millisecond)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
