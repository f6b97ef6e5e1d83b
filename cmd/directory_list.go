package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var directoryUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all users in the directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving users...")
		users, err := cli.ListUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Username", "Email", "Name", "Enabled"})

		for _, u := range users {
			enabled := redCross
			if u.Enabled {
				enabled = greenCheck
			}
			t.AppendRow(table.Row{
				truncate(u.ID, 36),
				color.New(color.Bold).Sprint(u.Username),
				u.Email,
				u.GivenName + " " + u.FamilyName,
				enabled,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

var directoryGroupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List all groups in the directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving groups...")
		groups, err := cli.ListGroups(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing groups: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, g := range groups {
			t.AppendRow(table.Row{g.ID, color.New(color.Bold).Sprint(g.Name)})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

var directoryMembershipsCmd = &cobra.Command{
	Use:   "memberships USER-ID",
	Short: "List the groups a user is a member of",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		groups, err := cli.MemberOfGroups(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("listing memberships: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name"})
		for _, g := range groups {
			t.AppendRow(table.Row{g.ID, g.Name})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	directoryCmd.AddCommand(directoryUsersCmd)
	directoryCmd.AddCommand(directoryGroupsCmd)
	directoryCmd.AddCommand(directoryMembershipsCmd)
}
