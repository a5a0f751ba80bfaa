package cli

import (
	"github.com/spf13/cobra"
)

// addHelpCommands adds the command overview and the quick start guide.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newCommandsCmd(app))
	rootCmd.AddCommand(newQuickstartCmd(app))
}

type helpEntry struct {
	cmd  string
	desc string
}

var commandCategories = []struct {
	name     string
	commands []helpEntry
}{
	{
		name: "Trades",
		commands: []helpEntry{
			{"trade add", "Log a trade (prices or plain P/L)"},
			{"trade edit <id>", "Change a trade, derived fields recomputed"},
			{"trade delete <id>", "Remove a trade"},
			{"trade list", "List trades, newest first"},
			{"trade show <id>", "Trade details"},
		},
	},
	{
		name: "Analytics",
		commands: []helpEntry{
			{"dashboard", "Overview of the journal"},
			{"stats", "Win rate, P/L, profit factor, expectancy"},
			{"calendar", "Daily results for a month"},
			{"pairs", "Performance per currency pair"},
			{"series", "Wins and losses over 7d/30d/90d/1y"},
		},
	},
	{
		name: "Data",
		commands: []helpEntry{
			{"export", "Write trades as CSV"},
			{"import", "Read trades from CSV"},
			{"serve", "HTTP API for the web frontend"},
		},
	},
	{
		name: "Setup",
		commands: []helpEntry{
			{"config init", "Write config templates"},
			{"config show/path/validate", "Configuration"},
			{"version", "Version information"},
		},
	},
}

func newCommandsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List all commands by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			if output.IsStructured() {
				out := make(map[string]map[string]string)
				for _, cat := range commandCategories {
					out[cat.name] = make(map[string]string)
					for _, c := range cat.commands {
						out[cat.name][c.cmd] = c.desc
					}
				}
				return output.Data(out)
			}

			output.Bold("fxjournal commands")
			output.Println()
			for _, cat := range commandCategories {
				output.Bold(cat.name)
				for _, c := range cat.commands {
					output.Printf("  %s %s\n", PadRight(c.cmd, 28), c.desc)
				}
				output.Println()
			}
			output.Dim("Use 'fxjournal help <command>' for detailed help on any command")
			return nil
		},
	}
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			output.Bold("fxjournal - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{
					title: "Create the configuration",
					desc:  "Writes config.toml and credentials.toml; the journal is stored in SQLite next to them.",
					cmd:   "fxjournal config init",
				},
				{
					title: "Log a trade from its prices",
					desc:  "Pips, risk-reward and P/L are computed for you.",
					cmd:   "fxjournal trade add --pair EURUSD --direction long --entry 1.1000 --exit 1.1050 --lot 1 --sl 1.0950 --tp 1.1100",
				},
				{
					title: "Or log just the result",
					desc:  "Use --profit or --loss when you only know the outcome.",
					cmd:   "fxjournal trade add --pair GBPJPY --direction short --loss 35 --strategy reversal",
				},
				{
					title: "Review",
					desc:  "See the overview, then drill into statistics and the calendar.",
					cmd:   "fxjournal dashboard",
				},
				{
					title: "Connect the web frontend",
					desc:  "Set credentials.jwt_secret before exposing the API beyond localhost.",
					cmd:   "fxjournal serve --addr :8080",
				},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan("→"), i+1, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Configuration Files")
			output.Printf("  %s - journal, store, server and logging settings\n", output.Cyan("config.toml"))
			output.Printf("  %s - database DSN, Redis password, JWT secret\n", output.Cyan("credentials.toml"))
			output.Printf("  Directory: %s\n", app.Config.Dir)
			return nil
		},
	}
}
