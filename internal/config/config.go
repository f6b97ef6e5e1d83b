package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/bobbylite/enrollhub/internal/policy"
)

type Config struct {
	PingOne      PingOneConfig  `yaml:"pingone"`
	MailGun      MailGunConfig  `yaml:"mailgun"`
	Archive      ArchiveConfig  `yaml:"archive"`
	Audit        AuditConfig    `yaml:"audit"`
	AdminAuth    *AdminAuth     `yaml:"admin_auth"`
	Rules        []policy.Rule  `yaml:"rules"`
	PolicySource *PolicySource  `yaml:"policy_source"`
	Tasks        TasksConfig    `yaml:"tasks"`

	// InvitationTTL bounds how long an unconsumed invitation stays active.
	// Zero means invitations never expire.
	InvitationTTL time.Duration `yaml:"invitation_ttl"`
}

// PingOneConfig holds connection settings for the PingOne directory.
type PingOneConfig struct {
	// BaseURL is the PingOne API base, e.g. "https://api.pingone.com/v1".
	BaseURL string `yaml:"base_url"`

	// TokenEndpoint is the OAuth token endpoint used for the
	// client-credentials grant.
	TokenEndpoint string `yaml:"token_endpoint"`

	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// EnvironmentID identifies the PingOne environment all directory
	// operations are scoped to.
	EnvironmentID string `yaml:"environment_id"`

	// BirthrightGroupID is granted to every identity that completes
	// verification. Optional.
	BirthrightGroupID string `yaml:"birthright_group_id"`

	// PopulationID is the default population new identities are created in.
	PopulationID string `yaml:"population_id"`
}

func (c *PingOneConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.TokenEndpoint == "" {
		return fmt.Errorf("token_endpoint is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if c.EnvironmentID == "" {
		return fmt.Errorf("environment_id is required")
	}
	return nil
}

// MailGunConfig holds settings for outbound invitation mail.
type MailGunConfig struct {
	// APIBase is the MailGun API base, e.g. "https://api.mailgun.net/v3".
	APIBase string `yaml:"api_base"`

	// Domain is the sending domain registered with MailGun.
	Domain string `yaml:"domain"`

	APIKey string `yaml:"api_key"`

	// From is the sender address on invitation mail.
	From string `yaml:"from"`

	// MagicLinkBaseURL is the portal base the enrollment magic link
	// points at.
	MagicLinkBaseURL string `yaml:"magic_link_base_url"`
}

func (c *MailGunConfig) Validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("api_base is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.From == "" {
		return fmt.Errorf("from is required")
	}
	if c.MagicLinkBaseURL == "" {
		return fmt.Errorf("magic_link_base_url is required")
	}
	return nil
}

// ArchiveConfig selects where approved and denied requests are kept.
type ArchiveConfig struct {
	// Type selects the backend, e.g. "memory" or "postgres".
	Type string `yaml:"type"`

	// Config captures backend-specific fields.
	Config map[string]any `yaml:",inline"`
}

// PostgresArchiveConfig holds settings for the "postgres" archive backend.
// It is decoded from ArchiveConfig.Config.
type PostgresArchiveConfig struct {
	DSN string `mapstructure:"dsn"`
}

func (c *PostgresArchiveConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// AdminAuth configures how callers of the admin API are authenticated.
// Exactly one of HMAC or OIDC must be set.
type AdminAuth struct {
	HMAC *HMACAuthConfig `yaml:"hmac,omitempty"`
	OIDC *OIDCAuthConfig `yaml:"oidc,omitempty"`
}

type HMACAuthConfig struct {
	// Key is the shared secret admin tokens are signed with.
	Key string `yaml:"key"`
}

type OIDCAuthConfig struct {
	Issuer   string `yaml:"issuer"`
	ClientID string `yaml:"client_id"`
}

func (a *AdminAuth) Validate() error {
	switch {
	case a.HMAC != nil:
		if a.HMAC.Key == "" {
			return fmt.Errorf("hmac key is required")
		}
	case a.OIDC != nil:
		if a.OIDC.Issuer == "" {
			return fmt.Errorf("oidc issuer is required")
		}
		if a.OIDC.ClientID == "" {
			return fmt.Errorf("oidc client_id is required")
		}
	default:
		return fmt.Errorf("no admin auth method configured")
	}
	return nil
}

type PolicySourceSync struct {
	Interval time.Duration `yaml:"interval"`
}

type GitHubSourceConfig struct {
	// AppID is the GitHub App ID.
	AppID int64 `yaml:"app_id"`

	// InstallationID is the GitHub App installation ID.
	InstallationID int64 `yaml:"installation_id"`

	// ServerURL is the GitHub Enterprise server URL.
	// For GitHub.com, this can be left empty.
	ServerURL string `yaml:"server"`

	// PrivateKey is the GitHub App private key in PEM format.
	PrivateKey string `yaml:"private_key"`

	// Owner of the GitHub repository.
	Owner string `yaml:"owner"`

	// Repo is the name of the GitHub repository.
	Repo string `yaml:"repo"`

	// Path is the directory path within the repository to load rules from.
	// For example, "rules/".
	Path string `yaml:"path"`

	// Ref is the git reference to use (e.g. a branch).
	// For example, "main".
	Ref string `yaml:"ref"`
}

func (c *GitHubSourceConfig) Validate() error {
	if c.AppID == 0 {
		return fmt.Errorf("app_id is required")
	}
	if c.InstallationID == 0 {
		return fmt.Errorf("installation_id is required")
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("private_key is required")
	}
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if c.Repo == "" {
		return fmt.Errorf("repo is required")
	}
	if c.Ref == "" {
		return fmt.Errorf("ref is required")
	}
	return nil
}

// PolicySource holds configuration for the rule source => where to load
// auto-approval rules from.
type PolicySource struct {
	// GitHub holds configuration for GitHub as a rule source.
	GitHub *GitHubSourceConfig `yaml:"github,omitempty"`

	Sync PolicySourceSync `yaml:"sync"`
}

func (s *PolicySource) Validate() error {
	switch {
	case s.GitHub != nil:
		if err := s.GitHub.Validate(); err != nil {
			return fmt.Errorf("validating GitHub policy source: %w", err)
		}
	default:
		return fmt.Errorf("no valid policy source configured")
	}
	return nil
}

// TasksConfig holds intervals for the background tasks.
// An interval of 0 disables automatic scheduling; the task can still be
// triggered through the admin API.
type TasksConfig struct {
	RequestSweepInterval    time.Duration `yaml:"request_sweep_interval"`
	InvitationSweepInterval time.Duration `yaml:"invitation_sweep_interval"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.PingOne.Validate(); err != nil {
		return fmt.Errorf("validating pingone config: %w", err)
	}
	if err := c.MailGun.Validate(); err != nil {
		return fmt.Errorf("validating mailgun config: %w", err)
	}

	validRules, err := policy.Compile(c.Rules)
	if err != nil {
		return fmt.Errorf("validating rules: %w", err)
	}
	c.Rules = validRules

	if c.AdminAuth != nil {
		if err := c.AdminAuth.Validate(); err != nil {
			return fmt.Errorf("validating admin auth: %w", err)
		}
	}

	if c.PolicySource != nil {
		if err := c.PolicySource.Validate(); err != nil {
			return fmt.Errorf("validating policy source: %w", err)
		}
	}

	return nil
}
