package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"forex-journal/internal/api"
	"forex-journal/internal/session"
)

func addServeCommand(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newServeCmd(app))
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal API for the web frontend",
		Long: `Start the HTTP API used by the web frontend.

Every request is scoped to one user. With credentials.jwt_secret set, callers
must send an HS256 bearer token whose subject is the user id. Without it the
X-User-ID header is trusted, which is only suitable for local use.`,
		Example: `  fxjournal serve
  fxjournal serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			cfg := app.Config

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			openCtx, cancel := context.WithTimeout(ctx, commandTimeout)
			st, err := app.openStore(openCtx)
			cancel()
			if err != nil {
				output.Error("Failed to open store: %v", err)
				return err
			}

			logger := app.logger()
			sessions := session.NewRegistry(st, app.calculator(), logger)
			sessions.MaxAge = cfg.Server.SnapshotMaxAge
			sessions.IdleTTL = cfg.Server.SessionIdleTTL

			debug, _ := cmd.Flags().GetBool("debug")
			server := api.NewServer(api.Config{
				Addr:           addr,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				JWTSecret:      cfg.Credentials.JWTSecret,
				ReadTimeout:    cfg.Server.ReadTimeout,
				WriteTimeout:   cfg.Server.WriteTimeout,
				ProductionMode: !debug,
				Version:        Version,
				RateLimit:      cfg.Server.RateLimit,
				RateBurst:      cfg.Server.RateBurst,
			}, st, sessions, logger)

			if !cfg.AuthEnabled() {
				output.Warning("No jwt_secret configured: trusting the %s header", "X-User-ID")
			}
			output.Info("Listening on %s", addr)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			timeout := cfg.Server.ShutdownTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			output.Info("Server stopped")
			return <-errCh
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr)")
	return cmd
}
