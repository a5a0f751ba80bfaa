package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"forex-journal/internal/config"
	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/journal"
	"forex-journal/internal/logging"
	"forex-journal/internal/resilience"
	"forex-journal/internal/security"
	"forex-journal/internal/session"
	"forex-journal/internal/store"
	"forex-journal/internal/telemetry"
	"forex-journal/pkg/utils"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// commandTimeout bounds every store round trip made by a command.
const commandTimeout = 30 * time.Second

// App holds the application dependencies. Fields left nil are created on
// first use from the loaded configuration.
type App struct {
	Config *config.Config
	Logger *zerolog.Logger
	Store  store.TradeStore

	shutdownTracing telemetry.ShutdownFunc
}

// NewApp returns an App that loads everything lazily.
func NewApp() *App {
	return &App{}
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fxjournal",
		Short: "Forex trading journal",
		Long: `fxjournal records forex trades and reports on them.

Log trades with price levels (pips, risk-reward and P/L are derived) or with a
plain profit/loss figure, then review statistics, a calendar of results,
per-pair performance and a win/loss series. The same journal is served to the
web frontend with 'fxjournal serve'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.init(cmd); err != nil {
				return err
			}
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				l := app.Logger.Level(zerolog.DebugLevel)
				app.Logger = &l
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/fxjournal)")
	rootCmd.PersistentFlags().String("user", "", "journal user (default: journal.default_user)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("yaml", false, "output in YAML format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.MarkFlagsMutuallyExclusive("json", "yaml")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addAnalyticsCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addServeCommand(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// init loads configuration, logging and tracing unless already provided.
func (app *App) init(cmd *cobra.Command) error {
	if app.Config == nil {
		dir, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		app.Config = cfg
	}

	if app.Logger == nil {
		l := logging.NewLoggerWithConfig(logging.FromConfig(app.Config))
		app.Logger = &l
	}

	if app.shutdownTracing == nil {
		shutdown, err := telemetry.Init(app.Config.Telemetry.TraceStdout, Version, cmd.ErrOrStderr())
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Tracing disabled")
			shutdown = func(context.Context) error { return nil }
		}
		app.shutdownTracing = shutdown
	}
	return nil
}

// Close releases the store and flushes traces.
func (app *App) Close() error {
	var firstErr error
	if app.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		firstErr = app.shutdownTracing(ctx)
		cancel()
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		app.Store = nil
	}
	return firstErr
}

func (app *App) logger() zerolog.Logger {
	if app.Logger == nil {
		return zerolog.Nop()
	}
	return *app.Logger
}

func (app *App) calculator() *journal.Calculator {
	return journal.NewCalculator(app.Config.Journal.PipValuePerLot)
}

// userID returns --user, falling back to the configured default user.
func (app *App) userID(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = app.Config.Journal.DefaultUser
	}
	if user == "" {
		return "", apperrors.Wrap(apperrors.ErrNotAuthenticated, "no user given (use --user or journal.default_user)")
	}
	return user, nil
}

// openStore opens the configured backend once per process.
func (app *App) openStore(ctx context.Context) (store.TradeStore, error) {
	if app.Store != nil {
		return app.Store, nil
	}

	cfg := app.Config
	retry := utils.DefaultRetryConfig()
	if cfg.Store.MaxRetries > 0 {
		retry.MaxAttempts = cfg.Store.MaxRetries
	}

	st, err := store.Open(ctx, store.Options{
		Backend:     cfg.Store.Backend,
		SQLitePath:  cfg.Store.SQLitePath,
		PostgresDSN: cfg.Credentials.PostgresDSN,
		Redis: store.RedisOptions{
			Addr:      cfg.Store.RedisAddr,
			Password:  cfg.Credentials.RedisPassword,
			DB:        cfg.Store.RedisDB,
			KeyPrefix: cfg.Store.KeyPrefix,
		},
		Retry: retry,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Store.BreakerThreshold,
			Cooldown:         cfg.Store.BreakerCooldown,
		},
	}, app.logger())
	if err != nil {
		return nil, err
	}
	app.Store = st
	return st, nil
}

// repository opens the store and loads the current user's trades.
func (app *App) repository(ctx context.Context, cmd *cobra.Command) (*session.Repository, error) {
	user, err := app.userID(cmd)
	if err != nil {
		return nil, err
	}
	st, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := session.New(st, app.calculator(), user, app.logger())
	if err != nil {
		return nil, err
	}
	if err := repo.Refresh(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// output returns an Output configured from the UI settings.
func (app *App) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd).
		WithColor(app.Config.UI.ColorEnabled).
		WithCurrency(app.Config.Journal.Currency)
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Data(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("fxjournal v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if output.IsStructured() {
				return output.Data(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			path := config.ConfigPath(app.Config.Dir)
			if output.IsStructured() {
				return output.Data(map[string]string{"dir": app.Config.Dir, "path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsStructured() {
				return output.Data(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write config.toml and credentials.toml templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			force, _ := cmd.Flags().GetBool("force")
			written, err := config.WriteTemplates(app.Config.Dir, force)
			if err != nil {
				return err
			}
			if output.IsStructured() {
				return output.Data(map[string][]string{"written": written})
			}
			if len(written) == 0 {
				output.Info("Configuration already exists in %s (use --force to overwrite)", app.Config.Dir)
				return nil
			}
			for _, p := range written {
				output.Success("✓ Wrote %s", p)
			}
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "overwrite existing files")
	cmd.AddCommand(initCmd)

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Journal")
	output.Printf("  Default User:    %s\n", cfg.Journal.DefaultUser)
	output.Printf("  Pip Value/Lot:   %g\n", cfg.Journal.PipValuePerLot)
	output.Printf("  Currency:        %s\n", cfg.Journal.Currency)
	output.Printf("  Recent Limit:    %d\n", cfg.Journal.RecentLimit)
	output.Println()

	output.Bold("Store")
	output.Printf("  Backend:         %s\n", cfg.Store.Backend)
	switch cfg.Store.Backend {
	case store.BackendSQLite:
		output.Printf("  SQLite Path:     %s\n", cfg.Store.SQLitePath)
	case store.BackendRedis:
		output.Printf("  Redis:           %s (db %d, prefix %s)\n", cfg.Store.RedisAddr, cfg.Store.RedisDB, cfg.Store.KeyPrefix)
	case store.BackendPostgres:
		output.Printf("  Postgres DSN:    %s\n", security.RedactDSN(cfg.Credentials.PostgresDSN))
	}
	if cfg.Store.BreakerThreshold > 0 && cfg.Store.Backend != store.BackendSQLite && cfg.Store.Backend != store.BackendMemory {
		output.Printf("  Breaker:         after %d failures, %s cooldown\n", cfg.Store.BreakerThreshold, cfg.Store.BreakerCooldown)
	}
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  Origins:         %v\n", cfg.Server.AllowedOrigins)
	output.Printf("  JWT Secret:      %s\n", setOrNot(cfg.Credentials.JWTSecret))
	if cfg.Server.RateLimit > 0 {
		output.Printf("  Rate Limit:      %g req/s per user (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	output.Printf("  File:            %s\n", cfg.Logging.FilePath)
	output.Printf("  Trace Stdout:    %v\n", cfg.Telemetry.TraceStdout)
}

func setOrNot(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	app := NewApp()
	rootCmd := NewRootCmd(app)
	err := rootCmd.Execute()
	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", security.MaskSecrets(err.Error()))
		return 1
	}
	return 0
}
