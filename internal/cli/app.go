package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/me/docvault/internal/api"
	"github.com/me/docvault/internal/catalog"
	"github.com/me/docvault/internal/config"
	"github.com/me/docvault/internal/logging"
	"github.com/me/docvault/internal/route"
	"github.com/me/docvault/internal/session"
	"github.com/me/docvault/internal/tokenstore"
	"github.com/spf13/cobra"
)

// app is the per-invocation wiring shared by all commands. It is built in
// the root command's pre-run and torn down when the command returns.
type app struct {
	flags *globalFlags

	cfg        config.ClientConfig
	logger     *slog.Logger
	store      tokenstore.Store
	closeStore func() error
	sessions   *session.Manager
	routes     *route.Watcher
	client     *api.Client
	catalog    *catalog.Catalog
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	a.flags.apply(&cfg)
	a.cfg = cfg

	a.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return err
	}
	store, closeStore, err := tokenstore.Open(cfg.TokenStore, stateDir, a.logger)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	a.store, a.closeStore = store, closeStore

	a.sessions = session.NewManager(store, a.logger)
	a.sessions.Bootstrap()
	a.routes = route.Watch(a.sessions)
	a.client = api.NewClient(cfg.Server, store, cfg.Timeout, a.logger)
	a.catalog = catalog.New(a.client, a.sessions, a.logger)

	a.logger.Debug("client ready", "server", cfg.Server, "token_store", cfg.TokenStore,
		"authenticated", a.sessions.Current().Authenticated())

	if err := a.authorize(cmd); err != nil {
		a.close()
		return err
	}
	return nil
}

func (a *app) close() {
	if a.catalog != nil {
		a.catalog.Close()
	}
	if a.routes != nil {
		a.routes.Stop()
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			a.logger.Warn("close token store", "error", err)
		}
	}
}

// run adapts fn into a cobra RunE that releases the app's resources on
// return. A credential the service rejects gets a hint to log in again.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.close()
		err := fn(cmd, args)
		var rf *api.RequestFailed
		if errors.As(err, &rf) && rf.Unauthorized() && a.sessions.Current().Authenticated() {
			return fmt.Errorf("%w (credential rejected, run \"docvault logout\" and log in again)", err)
		}
		return err
	}
}
