package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Boot the module, join the network and report its address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(config.LogLevel)

		drv, prb, err := bringUp(cmd.Context(), config, logger)
		if err != nil {
			return err
		}
		defer prb.Close()

		fmt.Println(drv.LocalAddr())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
