package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Options overrides the viper-backed defaults when non-nil.
type Options struct {
	Level   string
	Format  string
	NoColor bool
}

// InitDefault sets up a console logger before flags and config have been
// parsed, so early failures are still readable.
func InitDefault() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the global logger from viper (log.level, log.format,
// log.no_color), or from opts when given.
func Init(opts *Options) {
	level := viper.GetString("log.level")
	format := viper.GetString("log.format")
	noColor := viper.GetBool("log.no_color")
	if opts != nil {
		level = opts.Level
		format = opts.Format
		noColor = opts.NoColor
	}

	switch strings.ToLower(level) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if strings.ToLower(format) == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})
}
