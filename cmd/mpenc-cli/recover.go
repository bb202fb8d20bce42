package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Request full re-authentication of the current group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.sess.Recover(); err != nil {
			return err
		}
		fmt.Println("recover sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}
