package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"forex-journal/internal/export"
	"forex-journal/internal/logging"
)

// addDataCommands adds CSV export and import.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExportCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades to CSV",
		Long: `Write the journal as CSV, one row per trade with derived columns
included. Use --out - to write to stdout.`,
		Example: `  fxjournal export --out trades.csv
  fxjournal export --pair EURUSD --out -`,
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

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			trades := repo.Filtered(filter)

			path, _ := cmd.Flags().GetString("out")
			var w io.Writer = cmd.OutOrStdout()
			if path != "-" {
				f, err := os.Create(path)
				if err != nil {
					output.Error("Failed to create %s: %v", path, err)
					return err
				}
				defer f.Close()
				w = f
			}

			if err := export.WriteCSV(w, trades); err != nil {
				output.Error("Export failed: %v", err)
				return err
			}

			if path != "-" {
				output.Success("✓ Exported %d trade(s) to %s", len(trades), path)
			}
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "-", "output file (- for stdout)")
	addFilterFlags(cmd)
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import trades from CSV",
		Long: `Read trades from a CSV file in the export format. Derived columns are
ignored and recomputed; rows that fail validation are skipped and reported.`,
		Example: `  fxjournal import --in trades.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			path, _ := cmd.Flags().GetString("in")
			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				f, err := os.Open(path)
				if err != nil {
					output.Error("Failed to open %s: %v", path, err)
					return err
				}
				defer f.Close()
				r = f
			}

			forms, err := export.ReadCSV(r)
			if err != nil {
				output.Error("Failed to read CSV: %v", err)
				return err
			}

			repo, err := app.repository(ctx, cmd)
			if err != nil {
				output.Error("Failed to open journal: %v", err)
				return err
			}

			res, err := export.Import(ctx, repo, forms)
			logging.LogImport(logging.WithUser(app.logger(), repo.UserID()), path, len(res.Imported), len(res.Skipped))
			if err != nil {
				output.Error("Import interrupted after %d trade(s): %v", len(res.Imported), err)
				return err
			}

			if output.IsStructured() {
				skipped := make([]string, 0, len(res.Skipped))
				for _, s := range res.Skipped {
					skipped = append(skipped, describeSkip(s.Row, s.Err))
				}
				return output.Data(map[string]interface{}{
					"imported": len(res.Imported),
					"skipped":  skipped,
				})
			}

			output.Success("✓ Imported %d trade(s)", len(res.Imported))
			for _, s := range res.Skipped {
				output.Warning("  skipped %s", describeSkip(s.Row, s.Err))
			}
			return nil
		},
	}
	cmd.Flags().StringP("in", "i", "-", "input file (- for stdin)")
	return cmd
}
