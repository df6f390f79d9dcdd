package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/ofx"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import statement transactions from OFX or QFX files exported from your bank.
Imported transactions join the SMS history used for pattern detection and forecasts.

Examples:
  # Import single file
  spice import-ofx ~/Downloads/hdfc_jan_2025.ofx --bank "HDFC Bank"

  # Import all QFX files in a directory
  spice import-ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	cmd.Flags().String("bank", "", "bank name to record on imported transactions")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	bank, _ := cmd.Flags().GetString("bank")
	ctx := cmd.Context()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	slog.Info("Importing OFX files", "file_count", len(files), "dry_run", dryRun)

	parser := ofx.NewParser(ofx.WithBank(bank))
	var all []model.Transaction
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			slog.Error("Failed to open file", "file", path, "error", err)
			continue
		}

		transactions, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}

		slog.Info("Processed file", "file", filepath.Base(path), "transactions", len(transactions))
		all = append(all, transactions...)
	}

	if len(all) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	summarizeImport(cmd, all)

	if dryRun {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Dry run complete - no data saved"))
		return nil
	}

	store, cleanup, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	saved, err := store.SaveTransactions(ctx, all)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"Saved %d transactions (%d already stored)", saved, len(all)-saved)))
	return nil
}

// expandFiles resolves glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", nil)
	}
	sort.Strings(files)
	return files, nil
}

func summarizeImport(cmd *cobra.Command, transactions []model.Transaction) {
	var oldest, newest time.Time
	var debits, credits float64
	merchants := make(map[string]bool)

	for i, txn := range transactions {
		if i == 0 || txn.Date.Before(oldest) {
			oldest = txn.Date
		}
		if i == 0 || txn.Date.After(newest) {
			newest = txn.Date
		}
		merchants[txn.Merchant] = true
		if txn.IsDebit() {
			debits += txn.AmountFloat()
		} else {
			credits += txn.AmountFloat()
		}
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.FormatTitle("OFX import"))
	_, _ = fmt.Fprintf(out, "  Transactions: %d from %d merchants\n", len(transactions), len(merchants))
	_, _ = fmt.Fprintf(out, "  Date range:   %s to %s\n", oldest.Format(dateLayout), newest.Format(dateLayout))
	_, _ = fmt.Fprintf(out, "  Spent:        %s\n", cli.FormatAmount(debits))
	_, _ = fmt.Fprintf(out, "  Received:     %s\n", cli.FormatAmount(credits))
}
