package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var excludeCmd = &cobra.Command{
	Use:   "exclude [member...]",
	Short: "Remove members from the current group",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.sess.Exclude(args); err != nil {
			return err
		}
		fmt.Println("exclude sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(excludeCmd)
}
