package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "Show the captured output of a background task's last run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving logs for task '%s'...", name)
		entries, err := cli.GetTaskLogs(cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("retrieving task logs: %w", err)
		}

		if len(entries) == 0 {
			log.Info().Msgf("Task '%s' has no captured output yet.", name)
			return nil
		}

		log.Info().Msgf("Logs for task '%s':", name)
		for _, entry := range entries {
			fmt.Printf("%s | %s | %s\n",
				faint(entry.Time.Format("15:04:05")),
				logLevelLabel(entry.Level),
				entry.Message)
		}
		return nil
	},
}

func logLevelLabel(level string) string {
	switch level {
	case "debug":
		return faint("dbg")
	case "info":
		return color.GreenString("inf")
	case "warn":
		return color.YellowString("wrn")
	case "error":
		return color.RedString("err")
	}
	return level
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)
}
