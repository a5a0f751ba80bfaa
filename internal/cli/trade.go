package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"forex-journal/internal/analytics"
	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/journal"
	"forex-journal/internal/models"
)

// addTradeCommands adds the trade command group.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"t"},
		Short:   "Log and manage trades",
		Long:    "Add, edit, delete, list and inspect journal trades.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeEditCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))

	rootCmd.AddCommand(cmd)
}

// tradeFlags maps form fields to flag names. Values are kept as text so the
// journal parser reports malformed numbers with the field name.
var tradeFlags = []struct {
	name  string
	usage string
	field func(*journal.TradeForm) *string
}{
	{"pair", "currency pair, e.g. EUR/USD", func(f *journal.TradeForm) *string { return &f.Pair }},
	{"direction", "long or short (buy/sell accepted)", func(f *journal.TradeForm) *string { return &f.Direction }},
	{"entry", "entry price", func(f *journal.TradeForm) *string { return &f.EntryPrice }},
	{"exit", "exit price", func(f *journal.TradeForm) *string { return &f.ExitPrice }},
	{"lot", "lot size", func(f *journal.TradeForm) *string { return &f.LotSize }},
	{"sl", "stop-loss price", func(f *journal.TradeForm) *string { return &f.StopLoss }},
	{"tp", "take-profit price", func(f *journal.TradeForm) *string { return &f.TakeProfit }},
	{"profit", "realized profit (instead of prices)", func(f *journal.TradeForm) *string { return &f.Profit }},
	{"loss", "realized loss as a positive amount (instead of prices)", func(f *journal.TradeForm) *string { return &f.Loss }},
	{"entry-time", "entry time, e.g. 2024-07-01 09:30 (default: now)", func(f *journal.TradeForm) *string { return &f.EntryTime }},
	{"exit-time", "exit time", func(f *journal.TradeForm) *string { return &f.ExitTime }},
	{"strategy", "strategy name", func(f *journal.TradeForm) *string { return &f.Strategy }},
	{"emotion", "emotional state", func(f *journal.TradeForm) *string { return &f.EmotionalState }},
	{"notes", "free-form notes", func(f *journal.TradeForm) *string { return &f.Notes }},
	{"confidence", "confidence 1-10 (default 5)", func(f *journal.TradeForm) *string { return &f.Confidence }},
	{"tags", "comma separated tags", func(f *journal.TradeForm) *string { return &f.Tags }},
}

func addTradeFormFlags(cmd *cobra.Command) {
	for _, f := range tradeFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
}

func tradeFormFromFlags(cmd *cobra.Command) journal.TradeForm {
	var form journal.TradeForm
	for _, f := range tradeFlags {
		v, _ := cmd.Flags().GetString(f.name)
		*f.field(&form) = v
	}
	return form
}

func newTradeAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a new trade",
		Long: `Log a new trade.

Give either the price levels (--entry, --exit, --lot, --sl, --tp) to have pips,
risk-reward and P/L computed, or a plain --profit or --loss.`,
		Example: `  fxjournal trade add --pair EURUSD --direction long --entry 1.1000 --exit 1.1050 --lot 1 --sl 1.0950 --tp 1.1100
  fxjournal trade add --pair GBP/JPY --direction sell --loss 35 --strategy "range fade" --tags asia,fomo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			in, err := tradeFormFromFlags(cmd).Parse()
			if err != nil {
				output.Error("Invalid trade: %v", err)
				return err
			}
			if in.EntryTime.IsZero() {
				in.EntryTime = time.Now()
			}

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			trade, err := repo.Add(ctx, in)
			if err != nil {
				output.Error("Failed to save trade: %v", err)
				return err
			}

			if output.IsStructured() {
				return output.Data(trade)
			}
			output.Success("✓ Trade logged: %s", trade.ID)
			printTrade(output, trade, app)
			return nil
		},
	}
	addTradeFormFlags(cmd)
	return cmd
}

func newTradeEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a trade",
		Long: `Change fields of an existing trade. Only the flags given are changed;
derived fields are recomputed. Supplying price levels replaces a plain
profit/loss and vice versa.`,
		Example: `  fxjournal trade edit 01J2Z3... --exit 1.1075
  fxjournal trade edit 01J2Z3... --notes "moved stop too early"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			existing, ok := repo.Get(args[0])
			if !ok {
				output.Error("Trade %s not found", args[0])
				return apperrors.ErrTradeNotFound
			}

			in, err := tradeFormFromFlags(cmd).Merge(journal.InputFromTrade(existing))
			if err != nil {
				output.Error("Invalid trade: %v", err)
				return err
			}

			trade, err := repo.Update(ctx, existing.ID, in)
			if err != nil {
				output.Error("Failed to update trade: %v", err)
				return err
			}

			if output.IsStructured() {
				return output.Data(trade)
			}
			output.Success("✓ Trade updated: %s", trade.ID)
			printTrade(output, trade, app)
			return nil
		},
	}
	addTradeFormFlags(cmd)
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a trade",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			if err := repo.Delete(ctx, args[0]); err != nil {
				if apperrors.IsNotFound(err) {
					output.Error("Trade %s not found", args[0])
				} else {
					output.Error("Failed to delete trade: %v", err)
				}
				return err
			}

			if output.IsStructured() {
				return output.Data(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Trade deleted: %s", args[0])
			return nil
		},
	}
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades",
		Long:    "List trades newest first, optionally filtered.",
		Example: `  fxjournal trade list --pair EURUSD --outcome loss
  fxjournal trade list --from 2024-07-01 --to 2024-07-31 --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			filter, err := filterFromFlags(cmd)
			if err != nil {
				output.Error("Invalid filter: %v", err)
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			trades := repo.Filtered(filter)
			if limit > 0 {
				trades = analytics.Recent(trades, limit)
			}

			if output.IsStructured() {
				return output.Data(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}
			renderTradeTable(output, trades, app)
			output.Println()
			output.Dim("%d trade(s)", len(trades))
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().Int("limit", 0, "show at most N trades")
	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			trade, ok := repo.Get(args[0])
			if !ok {
				output.Error("Trade %s not found", args[0])
				return apperrors.ErrTradeNotFound
			}

			if output.IsStructured() {
				return output.Data(trade)
			}
			printTrade(output, trade, app)
			return nil
		},
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("pair", "", "only this pair")
	cmd.Flags().String("strategy", "", "only this strategy")
	cmd.Flags().String("outcome", "", "win, loss or breakeven")
	cmd.Flags().String("from", "", "entry on or after this date")
	cmd.Flags().String("to", "", "entry on or before this date")
}

func filterFromFlags(cmd *cobra.Command) (analytics.Filter, error) {
	pair, _ := cmd.Flags().GetString("pair")
	strategy, _ := cmd.Flags().GetString("strategy")
	outcome, _ := cmd.Flags().GetString("outcome")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	f := analytics.Filter{Pair: pair, Strategy: strategy}
	if outcome != "" {
		o := models.Outcome(strings.ToLower(outcome))
		if !o.IsValid() {
			return f, apperrors.NewValidationError("outcome", outcome, "must be win, loss or breakeven")
		}
		f.Outcome = o
	}
	if from != "" {
		t, err := journal.ParseTime(from)
		if err != nil {
			return f, apperrors.NewValidationError("from", from, "unrecognized timestamp format")
		}
		f.From = t
	}
	if to != "" {
		t, err := journal.ParseTime(to)
		if err != nil {
			return f, apperrors.NewValidationError("to", to, "unrecognized timestamp format")
		}
		if len(strings.TrimSpace(to)) == len("2006-01-02") {
			t = analytics.EndOfDay(t)
		}
		f.To = t
	}
	return f, nil
}

func renderTradeTable(output *Output, trades []models.Trade, app *App) {
	ui := app.Config.UI
	table := NewTable(output, "ID", "Date", "Pair", "Side", "Pips", "R:R", "P/L", "Result", "Strategy")
	for _, t := range trades {
		table.AddRow(
			t.ID,
			FormatDateTime(t.EntryTime, ui.DateFormat, ui.TimeFormat),
			t.Pair,
			output.Direction(t.Direction),
			FormatPips(t.ProfitLossPips),
			FormatRiskReward(t.RiskRewardRatio),
			output.FormatPnL(t.NetProfit),
			output.Outcome(t.Outcome),
			TruncateString(t.Strategy, 20),
		)
	}
	table.Render()
}

func printTrade(output *Output, t models.Trade, app *App) {
	ui := app.Config.UI

	output.Bold("%s %s", t.Pair, output.Direction(t.Direction))
	output.Printf("  ID:          %s\n", t.ID)
	output.Printf("  Entry:       %s\n", FormatDateTime(t.EntryTime, ui.DateFormat, ui.TimeFormat))
	output.Printf("  Exit:        %s\n", FormatDateTime(t.ExitTime, ui.DateFormat, ui.TimeFormat))
	output.Printf("  Held:        %s\n", FormatHolding(t.EntryTime, t.ExitTime))

	if p := t.Prices; p != nil {
		output.Printf("  Prices:      %s -> %s  (lot %g)\n", FormatPrice(t.Pair, p.EntryPrice), FormatPrice(t.Pair, p.ExitPrice), p.LotSize)
		output.Printf("  SL / TP:     %s / %s\n", FormatPrice(t.Pair, p.StopLoss), FormatPrice(t.Pair, p.TakeProfit))
		output.Printf("  Pips:        %s\n", FormatPips(t.ProfitLossPips))
		output.Printf("  Risk:Reward: %s\n", FormatRiskReward(t.RiskRewardRatio))
	}
	output.Printf("  P/L:         %s  %s\n", output.FormatPnL(t.NetProfit), output.Outcome(t.Outcome))

	if t.Strategy != "" {
		output.Printf("  Strategy:    %s\n", t.Strategy)
	}
	if t.EmotionalState != "" {
		output.Printf("  Emotion:     %s\n", t.EmotionalState)
	}
	output.Printf("  Confidence:  %d/10\n", t.Confidence)
	if len(t.Tags) > 0 {
		output.Printf("  Tags:        %s\n", strings.Join(t.Tags, ", "))
	}
	if t.Notes != "" {
		output.Printf("  Notes:       %s\n", t.Notes)
	}
}

// describeSkip formats a skipped import row for the terminal.
func describeSkip(row int, err error) string {
	var ve *apperrors.ValidationError
	if apperrors.As(err, &ve) {
		return fmt.Sprintf("row %d: %s: %s", row, ve.Field, ve.Message)
	}
	return fmt.Sprintf("row %d: %v", row, err)
}
