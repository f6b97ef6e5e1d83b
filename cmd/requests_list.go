package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bobbylite/enrollhub/internal/core"
)

var requestsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List access requests awaiting a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving pending requests...")
		pending, err := cli.ListRequests(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing requests: %w", err)
		}

		renderRequestTable(pending)
		return nil
	},
}

var requestsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List access requests that have been decided",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving request history...")
		history, err := cli.RequestHistory(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing request history: %w", err)
		}

		renderRequestTable(history)
		return nil
	},
}

func renderRequestTable(reqs []core.AccessRequest) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "User", "Name", "Group", "Requested", "Expires", "Status"})

	for _, req := range reqs {
		status := string(req.Status)
		switch req.Status {
		case core.RequestApproved:
			status = color.GreenString(status)
		case core.RequestDenied:
			status = color.RedString(status)
		case core.RequestPending:
			if req.Expired(time.Now()) {
				status = color.YellowString("Pending (expired)")
			}
		}

		t.AppendRow(table.Row{
			truncate(req.ID, 12),
			truncate(req.UserID, 12),
			req.FirstName + " " + req.LastName,
			req.GroupName,
			req.RequestedAt.Format(time.RFC3339),
			req.ExpiresAt.Format(time.RFC3339),
			status,
		})
	}

	applyTableFormat(t)
	t.Render()
}

func init() {
	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsHistoryCmd)
}
