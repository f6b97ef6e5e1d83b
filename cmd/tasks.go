package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Administrative background task commands",
	Long:  `View, trigger and inspect server-side background tasks. Requires an authenticated session (enrollhub login).`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
