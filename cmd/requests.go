package cmd

import (
	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"req"},
	Short:   "Administrative access request commands",
	Long:    `View and decide on access requests. Requires an authenticated session (enrollhub login).`,
}

func init() {
	rootCmd.AddCommand(requestsCmd)
}
