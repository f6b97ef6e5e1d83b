package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var requestsApproveCmd = &cobra.Command{
	Use:   "approve ID",
	Short: "Approve a pending access request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID := args[0]
		if requestID == "" {
			return fmt.Errorf("request id cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Approving request '%s'...", requestID)
		resp, err := cli.ApproveRequest(cmd.Context(), requestID)
		if err != nil {
			return logError(err, "", "failed to approve request")
		}

		if !resp.Provisioned {
			log.Warn().Msgf("%s request %s approved, but provisioning failed: %s",
				redCross, bold(requestID), resp.Warning)
			log.Warn().Msg("The approval is committed. Provision the membership manually via 'enrollhub directory provision'.")
			return nil
		}

		logSuccess("approved request %s and provisioned user %s into group %s",
			bold(requestID), resp.Request.UserID, resp.Request.GroupID)
		return nil
	},
}

var requestsDenyCmd = &cobra.Command{
	Use:   "deny ID",
	Short: "Deny a pending access request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requestID := args[0]
		if requestID == "" {
			return fmt.Errorf("request id cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Denying request '%s'...", requestID)
		req, err := cli.DenyRequest(cmd.Context(), requestID)
		if err != nil {
			return logError(err, "", "failed to deny request")
		}

		logSuccess("denied request %s for user %s", bold(requestID), req.UserID)
		return nil
	},
}

var requestsCreateCmd = &cobra.Command{
	Use:   "create USER-ID GROUP-ID",
	Short: "Submit an access request on behalf of an existing user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		resp, err := cli.CreateRequest(cmd.Context(), args[0], args[1])
		if err != nil {
			return logError(err, "", "failed to create request")
		}

		if resp.AutoApprovedBy != "" {
			logSuccess("request %s auto-approved by rule '%s'", bold(resp.Request.ID), resp.AutoApprovedBy)
			return nil
		}
		logSuccess("request %s created, awaiting a decision", bold(resp.Request.ID))
		return nil
	},
}

func init() {
	requestsCmd.AddCommand(requestsApproveCmd)
	requestsCmd.AddCommand(requestsDenyCmd)
	requestsCmd.AddCommand(requestsCreateCmd)
}
