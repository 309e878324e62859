package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/apalint/internal/server"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lint API over HTTP",
		Long: `Start the HTTP API exposing /health, /rules, /rules/reload, /lint
and /coach.

Set server.api_keys (or APALINT_SERVER_API_KEYS) to require the X-API-Key
header. With --watch, rule files under the rules directory are reloaded
when they change.`,
		Example: `  # Serve on the default address
  apalint serve

  # Serve on another port and reload rules on change
  apalint serve --addr :9090 --watch --rules-dir ./rules`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Address to listen on (default: "+server.DefaultAddr+")")
	cmd.Flags().Bool("watch", false, "Reload rules when files under the rules directory change")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	srv, err := server.New(server.Config{
		Engine:       cmdCtx.Engine,
		Coach:        cmdCtx.Coach,
		Load:         func() (*lint.RuleSet, error) { return LoadRules(cfg.RulesDir) },
		Addr:         cfg.Server.Addr,
		RulesDir:     cfg.RulesDir,
		Watch:        cfg.Server.Watch,
		APIKeys:      cfg.Server.APIKeys,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdCtx.Renderer.Success("Serving apalint API on " + displayAddr(cfg.Server.Addr))
	return srv.Serve(ctx)
}

func displayAddr(addr string) string {
	if addr == "" {
		return server.DefaultAddr
	}
	return addr
}
