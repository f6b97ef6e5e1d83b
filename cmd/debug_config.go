package cmd

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

var debugConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Dump the parsed server configuration",
	Long: `Loads the server configuration file and prints the parsed structure.
Secrets are redacted before printing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadServerConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// never print credentials
		cfg.PingOne.ClientSecret = "<redacted>"
		cfg.MailGun.APIKey = "<redacted>"
		if cfg.AdminAuth != nil && cfg.AdminAuth.HMAC != nil {
			cfg.AdminAuth.HMAC.Key = "<redacted>"
		}
		if cfg.PolicySource != nil && cfg.PolicySource.GitHub != nil {
			cfg.PolicySource.GitHub.PrivateKey = "<redacted>"
		}

		spew.Config.Indent = "  "
		spew.Dump(cfg)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugConfigCmd)
}
