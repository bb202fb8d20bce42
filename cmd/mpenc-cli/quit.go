package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Leave the current group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.sess.Quit(); err != nil {
			return err
		}
		fmt.Println("quit sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quitCmd)
}
