package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start [member...]",
	Short: "Begin an initial key agreement with the given members",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.sess.Start(args); err != nil {
			return err
		}
		fmt.Println("start sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
