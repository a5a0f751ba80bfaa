package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"forex-journal/internal/analytics"
	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// addAnalyticsCommands adds the reporting commands.
func addAnalyticsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newCalendarCmd(app))
	rootCmd.AddCommand(newPairsCmd(app))
	rootCmd.AddCommand(newSeriesCmd(app))
	rootCmd.AddCommand(newDashboardCmd(app))
}

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show trading statistics",
		Long:  "Aggregate statistics over all trades, or over the filtered subset.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			filter, err := filterFromFlags(cmd)
			if err != nil {
				output.Error("Invalid filter: %v", err)
				return err
			}

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			stats := repo.Stats()
			if !filter.IsEmpty() {
				stats = analytics.AggregateStats(repo.Filtered(filter))
			}

			if output.IsStructured() {
				return output.Data(stats)
			}
			printStats(output, stats)
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func printStats(output *Output, s models.TradeStats) {
	output.Box("Performance", []string{
		fmt.Sprintf("Trades:          %d  (%s / %s / %d BE)",
			s.TotalTrades, output.Green(fmt.Sprintf("%d W", s.WinningTrades)),
			output.Red(fmt.Sprintf("%d L", s.LosingTrades)), s.BreakevenTrades),
		fmt.Sprintf("Win Rate:        %s", FormatPercent(s.WinRate)),
		fmt.Sprintf("Net P/L:         %s", output.FormatPnL(s.NetProfitLoss)),
		fmt.Sprintf("Gross Profit:    %s", output.Money(s.TotalProfit)),
		fmt.Sprintf("Gross Loss:      %s", output.Money(s.TotalLoss)),
		fmt.Sprintf("Best Trade:      %s", output.FormatPnL(s.BestTrade)),
		fmt.Sprintf("Worst Loss:      %s", output.Money(s.WorstTrade)),
		fmt.Sprintf("Avg Win:         %s", output.Money(s.AvgWin)),
		fmt.Sprintf("Avg Loss:        %s", output.Money(s.AvgLoss)),
		fmt.Sprintf("Avg Risk:Reward: %s", formatAvgRR(s.AvgRiskReward)),
		fmt.Sprintf("Profit Factor:   %s", formatFactor(s.ProfitFactor)),
		fmt.Sprintf("Expectancy:      %s", output.FormatPnL(s.Expectancy)),
	})
}

func formatAvgRR(rr float64) string {
	if rr == 0 {
		return "n/a"
	}
	return FormatRiskReward(&rr)
}

func formatFactor(f float64) string {
	if f == 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}

func newCalendarCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show daily results for a month",
		Long:  "Show a month grid of daily P/L, colored by the day's result.",
		Example: `  fxjournal calendar
  fxjournal calendar --month 2024-07`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			monthFlag, _ := cmd.Flags().GetString("month")
			month := time.Now()
			if monthFlag != "" {
				m, err := time.ParseInLocation("2006-01", monthFlag, time.Local)
				if err != nil {
					err = apperrors.NewValidationError("month", monthFlag, "must be YYYY-MM")
					output.Error("Invalid month: %v", err)
					return err
				}
				month = m
			}

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			days := repo.Calendar()
			prefix := month.Format("2006-01") + "-"

			if output.IsStructured() {
				var inMonth []models.DailySummary
				for _, d := range analytics.SortedDays(days) {
					if strings.HasPrefix(d.Date, prefix) {
						inMonth = append(inMonth, d)
					}
				}
				return output.Data(inMonth)
			}

			printCalendar(output, month, days)
			return nil
		},
	}
	cmd.Flags().String("month", "", "month to show as YYYY-MM (default: current month)")
	return cmd
}

func printCalendar(output *Output, month time.Time, days map[string]models.DailySummary) {
	const cell = 10

	output.Bold("%s", month.Format("January 2006"))
	var header []string
	for _, wd := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		header = append(header, PadRight(wd, cell))
	}
	output.Println(strings.TrimRight(strings.Join(header, " "), " "))

	var monthPL float64
	var monthTrades int
	for _, week := range analytics.MonthWeeks(month.Year(), month.Month(), days) {
		var dates, pls []string
		for _, d := range week {
			if d.Date == "" {
				dates = append(dates, strings.Repeat(" ", cell))
				pls = append(pls, strings.Repeat(" ", cell))
				continue
			}
			dates = append(dates, PadRight(d.Date[8:], cell))
			if d.Trades == 0 {
				pls = append(pls, PadRight(output.DimText("-"), cell+visibleExtra(output.DimText("-"))))
				continue
			}
			monthPL += d.TotalPL
			monthTrades += d.Trades
			pl := output.ColoredString(sentimentColor(d.Sentiment()), fmt.Sprintf("%+.2f", d.TotalPL))
			pls = append(pls, PadRight(pl, cell+visibleExtra(pl)))
		}
		output.Println(strings.TrimRight(strings.Join(dates, " "), " "))
		output.Println(strings.TrimRight(strings.Join(pls, " "), " "))
	}

	output.Println()
	output.Printf("Month: %d trade(s), %s\n", monthTrades, output.FormatPnL(monthPL))
}

// visibleExtra is the byte length of the escape codes in s.
func visibleExtra(s string) int {
	return len(s) - len(stripANSI(s))
}

func sentimentColor(s models.Sentiment) string {
	switch s {
	case models.SentimentPositive:
		return ColorGreen
	case models.SentimentNegative:
		return ColorRed
	}
	return ColorYellow
}

func newPairsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pairs",
		Short: "Show performance per currency pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			pairs := repo.Pairs()
			if output.IsStructured() {
				return output.Data(pairs)
			}
			if len(pairs) == 0 {
				output.Info("No trades yet.")
				return nil
			}

			table := NewTable(output, "Pair", "Trades", "Wins", "Losses", "Win Rate", "P/L")
			for _, p := range pairs {
				table.AddRow(
					p.Pair,
					fmt.Sprintf("%d", p.Trades),
					fmt.Sprintf("%d", p.Wins),
					fmt.Sprintf("%d", p.Losses),
					FormatPercent(p.WinRate),
					output.FormatPnL(p.TotalPL),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newSeriesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Show wins and losses over time",
		Long:  "Show each closed trade in the window as a win or loss bar, oldest first.",
		Example: `  fxjournal series --range 7d
  fxjournal series --range 1y --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			rangeFlag, _ := cmd.Flags().GetString("range")
			rng, err := analytics.ParseTimeRange(rangeFlag)
			if err != nil {
				output.Error("%v", err)
				return apperrors.NewValidationError("range", rangeFlag, err.Error())
			}

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			points := repo.Series(rng, time.Now())
			if output.IsStructured() {
				return output.Data(points)
			}
			if len(points) == 0 {
				output.Info("No closed trades in the last %s.", rng)
				return nil
			}
			printSeries(output, points, app)
			return nil
		},
	}
	cmd.Flags().String("range", string(analytics.Range30D), "window: 7d, 30d, 90d or 1y")
	return cmd
}

func printSeries(output *Output, points []models.SeriesPoint, app *App) {
	var max float64
	for _, p := range points {
		max = math.Max(max, math.Max(p.Win, p.Loss))
	}

	var wins, losses float64
	for _, p := range points {
		date := FormatDate(p.Time, app.Config.UI.DateFormat)
		switch {
		case p.Win > 0:
			wins += p.Win
			output.Printf("%s  %-7s %s %s\n", date, p.Pair, output.Green(Bar(p.Win, max, 30)), output.Money(p.Win))
		case p.Loss > 0:
			losses += p.Loss
			output.Printf("%s  %-7s %s %s\n", date, p.Pair, output.Red(Bar(p.Loss, max, 30)), output.Money(p.Loss))
		default:
			output.Printf("%s  %-7s %s\n", date, p.Pair, output.DimText("breakeven"))
		}
	}
	output.Println()
	output.Printf("Won %s, lost %s, net %s\n", output.Money(wins), output.Money(losses), output.FormatPnL(wins-losses))
}

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show an overview of the journal",
		Long:  "Headline statistics, this month's calendar, top pairs and recent trades.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			limit := app.Config.Journal.RecentLimit
			if limit == 0 {
				limit = 10
			}
			stats := repo.Stats()
			pairs := repo.Pairs()
			recent := repo.Recent(limit)

			if output.IsStructured() {
				return output.Data(struct {
					Stats  models.TradeStats        `json:"stats" yaml:"stats"`
					Pairs  []models.PairPerformance `json:"pairs" yaml:"pairs"`
					Recent []models.Trade           `json:"recent" yaml:"recent"`
					Today  models.DailySummary      `json:"today" yaml:"today"`
				}{stats, pairs, recent, repo.Calendar()[analytics.DayKey(time.Now())]})
			}

			printStats(output, stats)
			output.Println()
			printCalendar(output, time.Now(), repo.Calendar())

			if len(pairs) > 0 {
				output.Println()
				output.Bold("Top Pairs")
				if len(pairs) > 5 {
					pairs = pairs[:5]
				}
				for _, p := range pairs {
					output.Printf("  %-8s %3d trades  %s\n", p.Pair, p.Trades, output.FormatPnL(p.TotalPL))
				}
			}

			if len(recent) > 0 {
				output.Println()
				output.Bold("Recent Trades")
				renderTradeTable(output, recent, app)
			}
			return nil
		},
	}
}
