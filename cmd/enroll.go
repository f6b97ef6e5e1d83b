package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bobbylite/enrollhub/internal/core"
)

var enrollGroupID string

var enrollCmd = &cobra.Command{
	Use:   "enroll EMAIL",
	Short: "Invite a new user by email",
	Long: `Begins the enrollment workflow for a new user: an invitation with a
magic link is mailed to the given address. The invitee completes enrollment
through the portal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Inviting '%s'...", args[0])
		invitation, err := cli.BeginEnrollment(cmd.Context(), enrollGroupID, args[0])
		if err != nil {
			return logError(err, "", "failed to begin enrollment")
		}

		if invitation.Status == core.InvitationFailed {
			log.Warn().Msgf("%s invitation %s created, but the email could not be delivered",
				redCross, bold(invitation.ID))
			return nil
		}

		logSuccess("invited %s (invitation %s)", bold(args[0]), invitation.ID)
		return nil
	},
}

var invitationsCmd = &cobra.Command{
	Use:   "invitations",
	Short: "List invitations that have not been consumed yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		invitations, err := cli.ListInvitations(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to list invitations")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Email", "Group", "Status", "Created"})

		for _, inv := range invitations {
			status := string(inv.Status)
			if inv.Status == core.InvitationFailed {
				status = color.RedString(status)
			}
			t.AppendRow(table.Row{
				inv.ID,
				color.New(color.Bold).Sprint(inv.Email),
				inv.GroupID,
				status,
				inv.CreatedAt.Format(time.RFC3339),
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(invitationsCmd)

	enrollCmd.Flags().StringVarP(&enrollGroupID, "group", "g", "", "Group the invitee will request access to")
	_ = enrollCmd.MarkFlagRequired("group")
}
