package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bobbylite/enrollhub/internal/api"
	"github.com/bobbylite/enrollhub/internal/api/middleware"
	"github.com/bobbylite/enrollhub/internal/archive"
	"github.com/bobbylite/enrollhub/internal/audit"
	"github.com/bobbylite/enrollhub/internal/cliconfig"
	"github.com/bobbylite/enrollhub/internal/config"
	"github.com/bobbylite/enrollhub/internal/core"
	"github.com/bobbylite/enrollhub/internal/enrollment"
	"github.com/bobbylite/enrollhub/internal/httpx"
	"github.com/bobbylite/enrollhub/internal/logging"
	"github.com/bobbylite/enrollhub/internal/mailgun"
	"github.com/bobbylite/enrollhub/internal/pingone"
	"github.com/bobbylite/enrollhub/internal/policy"
	"github.com/bobbylite/enrollhub/internal/requests"
	"github.com/bobbylite/enrollhub/internal/source"
	"github.com/bobbylite/enrollhub/internal/tasks"
	"github.com/bobbylite/enrollhub/pkg/client"
)

type Factory struct {
	// RemoteAddr is the address of the EnrollHub server to connect to.
	RemoteAddr string
}

var f = NewFactory()

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) bindServerFlag(flags *pflag.FlagSet) {
	flags.StringVar(&f.RemoteAddr, "server", "", "Address of the remote EnrollHub server")
}

// GetClient returns an authenticated HTTP client for remote operations.
func (f *Factory) GetClient() (*client.Client, error) {
	server := f.RemoteAddr // prio 1: command-line flag
	if server == "" {
		server = viper.GetString(ServerAddrKey) // prio 2: config/env
	}
	if server == "" {
		return nil, fmt.Errorf("server address not configured (use --server or set ENROLLHUB_ADDR)")
	}

	var token string
	if cfg, err := cliconfig.Load(); err == nil {
		if cred, err := cfg.GetCredential(server); err == nil { // token prio 1: saved credential
			token = cred.Token
		}
	}

	if envToken := os.Getenv("ENROLLHUB_TOKEN"); envToken != "" { // token prio 2: env var
		token = envToken
	}

	return client.New(server, client.WithAuthToken(token)), nil
}

func (f *Factory) LoadServerConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file not specified (use --config)")
	}
	return config.Load(cfgFile)
}

// ServerAssembly holds everything BuildServer wires up for `serve`.
type ServerAssembly struct {
	Handler http.Handler
	Auditor core.Auditor
	Archive core.Archive

	closers []func()
}

// Close releases backend resources such as database pools and file handles.
func (a *ServerAssembly) Close() {
	for _, closer := range a.closers {
		closer()
	}
	if a.Auditor != nil {
		_ = a.Auditor.Close()
	}
}

// BuildServer wires the full service from the loaded configuration.
func (f *Factory) BuildServer(ctx context.Context, cfg *config.Config) (*ServerAssembly, error) {
	assembly := &ServerAssembly{}

	// outbound PingOne client behind the bearer retry transport
	authenticator := pingone.NewAuthenticator(
		cfg.PingOne.TokenEndpoint,
		cfg.PingOne.ClientID,
		cfg.PingOne.ClientSecret,
	)
	directory := pingone.NewClient(
		cfg.PingOne.BaseURL,
		cfg.PingOne.EnvironmentID,
		authenticator,
		httpx.NewTokenCache(),
	)

	mailer := mailgun.NewClient(
		cfg.MailGun.APIBase,
		cfg.MailGun.Domain,
		cfg.MailGun.APIKey,
		cfg.MailGun.From,
	)

	requestArchive, err := buildArchive(ctx, cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("building archive: %w", err)
	}
	assembly.Archive = requestArchive
	if closer, ok := requestArchive.(interface{ Close() }); ok {
		assembly.closers = append(assembly.closers, closer.Close)
	}

	auditor, err := buildAuditor(cfg.Audit)
	if err != nil {
		return nil, fmt.Errorf("building auditor: %w", err)
	}
	assembly.Auditor = auditor

	policyManager := policy.NewManager(cfg.Rules)

	store := requests.NewStore(directory, requests.WithPolicies(policyManager))

	workflow := enrollment.NewWorkflow(
		directory,
		mailer,
		requestArchive,
		store,
		auditor,
		enrollment.Config{
			MagicLinkBaseURL:  cfg.MailGun.MagicLinkBaseURL,
			BirthrightGroupID: cfg.PingOne.BirthrightGroupID,
			PopulationID:      cfg.PingOne.PopulationID,
			InvitationTTL:     cfg.InvitationTTL,
		},
	)

	taskManager := tasks.NewManager()
	registerTasks(taskManager, cfg, store, workflow, auditor, policyManager)

	adminVerifier, err := buildAdminVerifier(ctx, cfg.AdminAuth)
	if err != nil {
		return nil, fmt.Errorf("building admin verifier: %w", err)
	}

	srv := api.NewServer(store, workflow, directory, taskManager, auditor)
	assembly.Handler = srv.Routes(adminVerifier)

	return assembly, nil
}

func buildArchive(ctx context.Context, cfg config.ArchiveConfig) (core.Archive, error) {
	switch cfg.Type {
	case "", "memory":
		return archive.NewMemoryArchive(), nil
	case "postgres":
		var pgCfg config.PostgresArchiveConfig
		if err := mapstructure.Decode(cfg.Config, &pgCfg); err != nil {
			return nil, fmt.Errorf("decoding postgres archive config: %w", err)
		}
		if err := pgCfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid postgres archive config: %w", err)
		}
		return archive.NewPostgresArchive(ctx, pgCfg.DSN)
	default:
		return nil, fmt.Errorf("unknown archive type '%s'", cfg.Type)
	}
}

func buildAuditor(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "", "memory":
		return audit.NewInMemoryAuditor(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file auditor requires a path")
		}
		return audit.NewFileAuditor(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}

func buildAdminVerifier(ctx context.Context, cfg *config.AdminAuth) (middleware.TokenVerifier, error) {
	if cfg == nil {
		return nil, nil
	}
	switch {
	case cfg.HMAC != nil:
		return middleware.NewHMACVerifier([]byte(cfg.HMAC.Key)), nil
	case cfg.OIDC != nil:
		return middleware.NewOIDCVerifier(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID)
	default:
		return nil, nil
	}
}

func registerTasks(
	manager *tasks.Manager,
	cfg *config.Config,
	store *requests.Store,
	workflow *enrollment.Workflow,
	auditor core.Auditor,
	policyManager *policy.Manager,
) {
	manager.Register("invitations-sweep", cfg.Tasks.InvitationSweepInterval,
		func(ctx context.Context, logger logging.InternalLogger) error {
			removed := workflow.SweepExpiredInvitations()
			logger.Info("removed %d expired invitations", removed)
			return nil
		})

	manager.Register("requests-sweep", cfg.Tasks.RequestSweepInterval,
		func(ctx context.Context, logger logging.InternalLogger) error {
			expired := store.ExpiredPending()
			for _, req := range expired {
				logger.Warn("request %s for user %s expired while pending", req.ID, req.UserID)
				if err := auditor.Log(core.AuditEntry{
					ID:        req.ID,
					Time:      req.ExpiresAt,
					Action:    "request.expired",
					RequestID: req.ID,
					UserID:    req.UserID,
					GroupID:   req.GroupID,
					Success:   false,
					Error:     "pending request expired without a decision",
				}); err != nil {
					logger.Error("failed to write audit log: %v", err)
				}
			}
			logger.Info("found %d expired pending requests", len(expired))
			return nil
		})

	if cfg.PolicySource != nil && cfg.PolicySource.GitHub != nil {
		fetcher, err := source.NewGitHubFetcher(*cfg.PolicySource.GitHub)
		if err != nil {
			// the config was validated on load, this should not happen
			panic(fmt.Sprintf("building github fetcher: %v", err))
		}

		manager.Register("policy-sync", cfg.PolicySource.Sync.Interval,
			func(ctx context.Context, logger logging.InternalLogger) error {
				rules, err := fetcher.Fetch(ctx, logger)
				if err != nil {
					return fmt.Errorf("fetching rules: %w", err)
				}
				if err := policyManager.Update(rules); err != nil {
					return fmt.Errorf("updating rules: %w", err)
				}
				logger.Info("policy engine updated with %d rules", len(rules))
				return nil
			})
	}
}
