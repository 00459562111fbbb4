// Package cli implements ecoctl, a terminal front end over the same session
// core the web client uses. Credentials live in one storage namespace per
// profile, so several shells share a login the way browser tabs do.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/bootstrap"
	"github.com/ecoai-civic/ecoai-client/internal/config"
	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/gateway"
	"github.com/ecoai-civic/ecoai-client/internal/guard"
	"github.com/ecoai-civic/ecoai-client/internal/navigation"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
	"github.com/ecoai-civic/ecoai-client/internal/service"
	"github.com/ecoai-civic/ecoai-client/internal/session"
)

// DefaultProfile is the storage namespace used when --profile is not given.
const DefaultProfile = "default"

// Env is what the commands run against.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
}

// runtime is opened before each command and closed after it.
type runtime struct {
	backends *bootstrap.Backends
	gateway  *gateway.Gateway
	store    *credential.Store
	client   *gateway.Client
	resolver *session.Resolver
	accounts *service.AccountService
	guard    *guard.Guard
	policy   guard.Policy
}

type rootOptions struct {
	profile string
	apiURL  string
}

// NewRootCommand builds the ecoctl command tree.
func NewRootCommand(env *Env) *cobra.Command {
	opts := &rootOptions{}
	rt := &runtime{}

	root := &cobra.Command{
		Use:           "ecoctl",
		Short:         "EcoAI client from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.open(cmd.Context(), env, opts, cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.close()
		},
	}
	root.PersistentFlags().StringVar(&opts.profile, "profile", DefaultProfile, "credential profile (storage namespace)")
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "remote API base URL (overrides API_BASE_URL)")

	root.AddCommand(
		newLoginCommand(rt),
		newStaffLoginCommand(rt),
		newSignupCommand(rt),
		newLogoutCommand(rt),
		newWhoamiCommand(rt),
		newRefreshCommand(rt),
		newOpenCommand(rt),
		newCallCommand(rt),
		newNavCommand(rt),
	)
	return root
}

// ExecuteContext runs ecoctl with args.
func ExecuteContext(ctx context.Context, env *Env, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand(env)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (rt *runtime) open(ctx context.Context, env *Env, opts *rootOptions, stderr io.Writer) error {
	cfg := *env.Config
	if opts.apiURL != "" {
		cfg.API.BaseURL = opts.apiURL
	}
	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backends, err := bootstrap.Open(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	rt.backends = backends
	rt.gateway = gateway.New(gateway.Options{
		BaseURL:   cfg.API.BaseURL,
		LoginPath: cfg.Session.LoginPath,
		Timeout:   cfg.API.Timeout(),
		Logger:    logger,
		Metrics:   observability.NewMetrics(),
	})
	rt.store = backends.Provider.Store(opts.profile)
	rt.client = rt.gateway.Bind(rt.store, navigation.Func(func(_ context.Context, to string, _ bool) {
		fmt.Fprintf(stderr, "session ended, continue at %s\n", to)
	}))
	rt.resolver = session.NewResolver(rt.client, logger)
	rt.accounts = service.NewAccountService(rt.gateway, logger)
	rt.guard = guard.New(backends.Tracker, logger, nil)
	rt.policy = guard.Policy{LoginPath: cfg.Session.LoginPath, HomePath: cfg.Session.HomePath}
	return nil
}

func (rt *runtime) close() {
	if rt.backends != nil {
		rt.backends.Close()
	}
}
