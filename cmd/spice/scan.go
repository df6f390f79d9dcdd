package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/config"
	"github.com/Veraticus/spice-sms/internal/ingest"
	"github.com/Veraticus/spice-sms/internal/merchant"
	"github.com/Veraticus/spice-sms/internal/notify"
	"github.com/Veraticus/spice-sms/internal/parser"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/sms"
	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import transactions from an SMS backup",
		Long: `Read bank messages from an SMS Backup & Restore XML export, parse every
transaction and store the new ones.

After the import, spice checks for newly started and dormant subscriptions
and reports them.

Examples:
  # Scan the last six months of the configured backup
  spice scan

  # Scan one sender for a fixed window
  spice scan --file ~/sms-20250101.xml --sender HDFCBK --since 2024-07-01 --until 2024-12-31`,
		RunE: runScan,
	}

	cmd.Flags().StringP("file", "f", "", "SMS backup XML file (default: sms.backup)")
	cmd.Flags().String("sender", "", "only read messages whose sender contains this text (default: sms.sender)")
	cmd.Flags().IntP("months", "m", 6, "how many months back to scan")
	cmd.Flags().String("since", "", "scan from this date (YYYY-MM-DD)")
	cmd.Flags().String("until", "", "scan up to and including this date (YYYY-MM-DD)")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	cmd.Flags().Bool("skip-insights", false, "skip the new and dormant subscription checks")

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	sender, _ := cmd.Flags().GetString("sender")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	skipInsights, _ := cmd.Flags().GetBool("skip-insights")

	file = config.ExpandPath(file)
	if file == "" {
		file = settings.SMSBackup
	}
	if file == "" {
		return common.NewUserError("no SMS backup given: pass --file or set sms.backup", nil)
	}
	if sender == "" {
		sender = settings.SMSSender
	}

	period, err := parsePeriod(cmd, time.Now())
	if err != nil {
		return err
	}

	handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Scan", "Run spice scan again to continue; stored messages are skipped.")
	ctx, cancel := handler.HandleInterrupts(cmd.Context())
	defer cancel()

	store, cleanup, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sink := notify.NewLogSink(slog.Default())
	resolver := newResolver(store)

	opts := []ingest.Option{
		ingest.WithNotifier(sink),
		ingest.WithCategorizer(merchant.NewCategorizer(resolver, store, store)),
	}
	if !noProgress {
		opts = append(opts, ingest.WithProgress(func(total int) ingest.Progress {
			return cli.NewProgress(cmd.ErrOrStderr(), total, "Scanning messages")
		}))
	}

	scanner := ingest.NewScanner(sms.NewBackupSource(file, sender), parser.New(), store, opts...)
	stats, err := scanner.Scan(ctx, period)
	if err != nil && !(errors.Is(err, context.Canceled) && handler.WasInterrupted()) {
		return fmt.Errorf("scan failed: %w", err)
	}

	printScanStats(cmd, stats)
	if handler.WasInterrupted() || skipInsights || stats.Saved == 0 {
		return nil
	}

	return reportInsights(ctx, cmd, store, sink)
}

func printScanStats(cmd *cobra.Command, stats ingest.ScanStats) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, cli.FormatTitle("Scan complete"))
	_, _ = fmt.Fprintf(out, "  Messages scanned:  %d\n", stats.Scanned)
	_, _ = fmt.Fprintf(out, "  Transactions:      %d\n", stats.Matched)
	_, _ = fmt.Fprintf(out, "  Saved:             %d\n", stats.Saved)
	_, _ = fmt.Fprintf(out, "  Already stored:    %d\n", stats.Duplicates)
	_, _ = fmt.Fprintf(out, "  Card bills:        %d\n", stats.Bills)
	if stats.NeedsReview > 0 {
		_, _ = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d transactions were parsed with low confidence", stats.NeedsReview)))
	}
	if stats.Errors > 0 {
		_, _ = fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("%d messages failed; see the log for details", stats.Errors)))
	}
}

// reportInsights runs the subscription checks after an import and notifies about the results.
func reportInsights(ctx context.Context, cmd *cobra.Command, store service.Storage, sink service.NotificationSink) error {
	predictor, err := newPredictor(store)
	if err != nil {
		return err
	}

	fresh, err := predictor.IdentifyNewSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for new subscriptions: %w", err)
	}
	for _, sub := range fresh {
		notify.Send(ctx, sink, notify.NewSubscriptionEvent(sub))
	}

	dormant, err := predictor.FlagDormantSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for dormant subscriptions: %w", err)
	}
	for _, d := range dormant {
		notify.Send(ctx, sink, notify.DormantEvent(d))
	}

	if len(fresh) > 0 || len(dormant) > 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo(fmt.Sprintf(
			"%d new and %d dormant subscriptions; run spice forecast new / dormant for details",
			len(fresh), len(dormant))))
	}
	return nil
}
