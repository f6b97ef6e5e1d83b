package cmd

import (
	"github.com/spf13/cobra"
)

var directoryCmd = &cobra.Command{
	Use:     "directory",
	Aliases: []string{"dir"},
	Short:   "Administrative directory commands",
	Long:    `Inspect users, groups and memberships in the connected PingOne environment.`,
}

func init() {
	rootCmd.AddCommand(directoryCmd)
}
