package cmd

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bobbylite/enrollhub/internal/cliconfig"
	"github.com/bobbylite/enrollhub/pkg/client"
)

var loginCmd = &cobra.Command{
	Use:   "login TOKEN",
	Short: "Authenticate with an EnrollHub server",
	Long: `Saves an admin session token for the configured server.
The token is validated against the server before it is stored, so a typo
does not leave you with a broken session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionToken := args[0]
		if sessionToken == "" {
			return fmt.Errorf("token cannot be empty")
		}

		server := viper.GetString(ServerAddrKey)
		if server == "" {
			return fmt.Errorf("server address not configured, provide via --server or env")
		}
		u, err := url.Parse(server)
		if err != nil {
			return fmt.Errorf("parsing server URL: %w", err)
		}

		// validate the token against an authenticated endpoint
		cli := client.New(server, client.WithAuthToken(sessionToken))

		log.Info().Msgf("Validating session against %q...", u.Host)
		if _, err := cli.ListTasks(cmd.Context()); err != nil {
			log.Error().Msgf("%s session token was rejected by the server", redCross)
			log.Error().Msgf("error: %v", err)
			return BeQuietError{}
		}

		cfg, err := cliconfig.LoadOrNew()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		host, err := cfg.SetCredential(server, sessionToken)
		if err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return logError(err, "", "login succeeded but could not save credentials")
		}

		logSuccess("saved credentials for %s", bold(host))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
