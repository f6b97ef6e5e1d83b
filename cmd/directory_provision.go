package cmd

import (
	"github.com/spf13/cobra"
)

var directoryProvisionCmd = &cobra.Command{
	Use:   "provision USER-ID GROUP-ID",
	Short: "Add a user to a group directly, bypassing the request queue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		if err := cli.ProvisionMembership(cmd.Context(), args[0], args[1]); err != nil {
			return logError(err, "", "failed to provision membership")
		}

		logSuccess("provisioned user %s into group %s", bold(args[0]), bold(args[1]))
		return nil
	},
}

var directoryDeprovisionCmd = &cobra.Command{
	Use:   "deprovision USER-ID GROUP-ID",
	Short: "Remove a user from a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		if err := cli.DeprovisionMembership(cmd.Context(), args[0], args[1]); err != nil {
			return logError(err, "", "failed to deprovision membership")
		}

		logSuccess("removed user %s from group %s", bold(args[0]), bold(args[1]))
		return nil
	},
}

func init() {
	directoryCmd.AddCommand(directoryProvisionCmd)
	directoryCmd.AddCommand(directoryDeprovisionCmd)
}
