package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/me/docvault/internal/config"
	"github.com/me/docvault/internal/route"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// routeAnnotation marks a command with the view it stands for. Commands
// without it are reachable in every session state.
const routeAnnotation = "docvault.route"

var errLoginRequired = errors.New(`login required (run "docvault login")`)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	set *pflag.FlagSet

	configPath string
	server     string
	tokenStore string
	stateDir   string
	timeout    time.Duration
	debug      bool
	logLevel   string
	logFormat  string
}

func newGlobalFlags() *globalFlags {
	def := config.DefaultClientConfig()
	g := &globalFlags{set: pflag.NewFlagSet("docvault", pflag.ContinueOnError)}
	g.set.StringVar(&g.configPath, "config", "", "Config file (default ~/.docvault/config.yaml)")
	g.set.StringVar(&g.server, "server", def.Server, "Document service URL (or "+config.ServerEnv+" env)")
	g.set.StringVar(&g.tokenStore, "token-store", def.TokenStore, "Credential store: file, sqlite, memory")
	g.set.StringVar(&g.stateDir, "state-dir", "", "State directory (default ~/.docvault)")
	g.set.DurationVar(&g.timeout, "timeout", def.Timeout, "Per-request timeout")
	g.set.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	g.set.StringVar(&g.logLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	g.set.StringVar(&g.logFormat, "log-format", def.LogFormat, "Log format (text, json)")
	return g
}

// apply overlays explicitly set flags on cfg.
func (g *globalFlags) apply(cfg *config.ClientConfig) {
	if g.set.Changed("server") {
		cfg.Server = g.server
	}
	if g.set.Changed("token-store") {
		cfg.TokenStore = g.tokenStore
	}
	if g.set.Changed("state-dir") {
		cfg.StateDir = g.stateDir
	}
	if g.set.Changed("timeout") {
		cfg.Timeout = g.timeout
	}
	if g.set.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if g.set.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if g.debug {
		cfg.LogLevel = "debug"
	}
}

// NewRootCmd creates the root cobra command for the docvault CLI.
func NewRootCmd() *cobra.Command {
	a := &app{flags: newGlobalFlags()}

	root := &cobra.Command{
		Use:   "docvault",
		Short: "docvault: client for the document management service",
		Long: "docvault logs in to the document management service, searches, uploads and\n" +
			"downloads versioned documents, and serves a local web front end.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().AddFlagSet(a.flags.set)

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newDepartmentsCmd(a),
		newSearchCmd(a),
		newUploadCmd(a),
		newVersionsCmd(a),
		newDownloadCmd(a),
		newServeCmd(a),
	)

	return root
}

// forRoute tags cmd with the route it is gated on.
func forRoute(cmd *cobra.Command, r route.Route) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[routeAnnotation] = string(r)
	return cmd
}

// authorize rejects cmd when its route is not reachable in the current
// session.
func (a *app) authorize(cmd *cobra.Command) error {
	name, ok := cmd.Annotations[routeAnnotation]
	if !ok {
		return nil
	}
	d := a.routes.Decision()
	if d.Allows(route.Route(name)) {
		return nil
	}
	if d.Default == route.Login {
		return errLoginRequired
	}
	return fmt.Errorf("already logged in as %s (run \"docvault logout\" first)", a.sessions.Current().Subject())
}
