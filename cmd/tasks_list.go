package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bobbylite/enrollhub/internal/tasks"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the server's background tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving tasks...")
		statuses, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "State", "Last Run", "Took", "Next Run", "Last Result"})

		for _, status := range statuses {
			t.AppendRow(taskRow(status))
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func taskRow(status tasks.TaskStatus) table.Row {
	state := "idle"
	if status.Running {
		state = color.BlueString("running")
	}

	lastRun := "never"
	took := ""
	if !status.LastRun.IsZero() {
		lastRun = time.Since(status.LastRun).Round(time.Second).String() + " ago"
		took = status.LastDuration.Round(time.Millisecond).String()
	}

	nextRun := "n/a"
	if !status.NextRun.IsZero() {
		nextRun = "in " + time.Until(status.NextRun).Round(time.Second).String()
	}

	result := status.LastResult
	switch {
	case result == "success":
		result = greenCheck + " " + result
	case result != "":
		result = redCross + " " + result
	}

	return table.Row{bold(status.Name), state, lastRun, took, nextRun, result}
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
