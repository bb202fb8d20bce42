package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Encrypt and broadcast a message to the current group",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return client.sess.SendData([]byte(strings.Join(args, " ")))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
