package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-key the current group without changing membership",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.sess.Refresh(); err != nil {
			return err
		}
		fmt.Println("refresh sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
