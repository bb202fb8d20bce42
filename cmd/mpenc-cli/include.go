package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var includeCmd = &cobra.Command{
	Use:   "include [member...]",
	Short: "Add members to the current group",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.sess.Include(args); err != nil {
			return err
		}
		fmt.Println("include sent")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(includeCmd)
}
