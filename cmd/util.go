package cmd

import (
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
)

var (
	greenCheck = color.GreenString("✓")
	redCross   = color.RedString("✗")

	bold  = color.New(color.Bold).Sprint
	faint = color.New(color.Faint).Sprint
)

// BeQuietError signals that the error has already been reported to the user
// and only the exit code should reflect the failure.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "exiting"
}

func logError(err error, correlation, msg string) error {
	if correlation != "" {
		log.Error().Msgf("%s %s (correlation ID: %s)", redCross, msg, correlation)
	} else {
		log.Error().Msgf("%s %s", redCross, msg)
	}
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func logSuccess(format string, args ...any) {
	log.Info().Msgf("%s "+format, append([]any{greenCheck}, args...)...)
}

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
