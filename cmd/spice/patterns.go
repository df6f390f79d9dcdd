package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/tui"
	"github.com/spf13/cobra"
)

// defaultDataset names the single transaction history detection runs over.
const defaultDataset = "transactions"

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patterns",
		Aliases: []string{"pattern"},
		Short:   "Detect and manage recurring expenses",
		Long: `Find merchants that charge at a regular interval and turn them into
recurring rules once you confirm them.`,
	}

	cmd.AddCommand(patternsDetectCmd())
	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsConfirmCmd())
	cmd.AddCommand(patternsDismissCmd())
	cmd.AddCommand(patternsCleanupCmd())
	cmd.AddCommand(patternsReviewCmd())
	cmd.AddCommand(patternsRulesCmd())
	cmd.AddCommand(patternsDeactivateCmd())

	return cmd
}

func patternsDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect recurring patterns in stored transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			runner := pattern.NewRunner(newDetector(store))
			out := cmd.OutOrStdout()

			if dryRun {
				result, err := runner.Detect(ctx, defaultDataset)
				if err != nil {
					return err
				}
				printSuggestions(cmd, result.Suggestions)
				_, _ = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf(
					"%d clusters, %d already covered by rules (dry run, nothing saved)", result.Clusters, result.Suppressed)))
				return nil
			}

			result, err := runner.Run(ctx, defaultDataset)
			if err != nil {
				return err
			}
			printSuggestions(cmd, result.Suggestions)
			_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf(
				"%d patterns found, %d new suggestions saved", len(result.Suggestions), result.Created)))
			if result.Errors > 0 {
				_, _ = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d merchant groups could not be analyzed", result.Errors)))
			}
			if result.Created > 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("Run spice patterns review to confirm or dismiss them"))
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "show patterns without saving suggestions")
	return cmd
}

func printSuggestions(cmd *cobra.Command, suggestions []model.PatternSuggestion) {
	if len(suggestions) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No recurring patterns found"))
		return
	}

	w := newTable(cmd)
	_, _ = fmt.Fprintln(w, "MERCHANT\tFREQUENCY\tAMOUNT\tCONFIDENCE\tSEEN\tNEXT")
	_, _ = fmt.Fprintln(w, "────────\t─────────\t──────\t──────────\t────\t────")
	for _, s := range suggestions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%d\t%s\n",
			truncateString(s.DisplayName, 28),
			strings.ToLower(string(s.Frequency)),
			cli.FormatAmount(s.AverageAmount),
			s.Confidence*100,
			s.Occurrences,
			s.NextDate.Format(dateLayout))
	}
	_ = w.Flush()
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suggestions awaiting review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			pending, err := store.ListPendingSuggestions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list suggestions: %w", err)
			}
			if len(pending) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No suggestions awaiting review"))
				return nil
			}

			w := newTable(cmd)
			_, _ = fmt.Fprintln(w, "ID\tMERCHANT\tFREQUENCY\tAMOUNT\tCONFIDENCE\tNEXT\tFOUND")
			_, _ = fmt.Fprintln(w, "──\t────────\t─────────\t──────\t──────────\t────\t─────")
			for _, s := range pending {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n",
					s.ID,
					truncateString(s.DisplayName, 28),
					strings.ToLower(string(s.Frequency)),
					cli.FormatAmount(s.AverageAmount),
					s.Confidence*100,
					s.NextDate.Format(dateLayout),
					s.CreatedAt.Format(dateLayout))
			}
			return w.Flush()
		},
	}
}

func patternsConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <suggestion id>",
		Short: "Confirm a suggestion as a recurring rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			ruleID, err := newDetector(store).ConfirmPattern(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Suggestion %d confirmed as recurring rule #%d", id, ruleID)))
			return nil
		},
	}
}

func patternsDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <suggestion id>",
		Short: "Dismiss a suggestion so it is not suggested again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := newDetector(store).DismissPattern(ctx, id); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Suggestion %d dismissed", id)))
			return nil
		},
	}
}

func patternsCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Forget old dismissed suggestions so they can be detected again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			olderThan, _ := cmd.Flags().GetDuration("older-than")

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := store.CleanupOldDismissed(ctx, olderThan)
			if err != nil {
				return fmt.Errorf("failed to clean up suggestions: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Removed %d dismissed suggestions", removed)))
			return nil
		},
	}

	cmd.Flags().Duration("older-than", 90*24*time.Hour, "remove suggestions dismissed longer ago than this")
	return cmd
}

func patternsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Review pending suggestions interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := tui.RunReview(ctx, store, newDetector(store))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Confirmed %d, dismissed %d, skipped %d, %d still pending",
				summary.Confirmed, summary.Dismissed, summary.Skipped, summary.Remaining)))
			return nil
		},
	}
}

func patternsRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List recurring rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			all, _ := cmd.Flags().GetBool("all")

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rules, err := store.ListRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}

			w := newTable(cmd)
			_, _ = fmt.Fprintln(w, "ID\tMERCHANT\tFREQUENCY\tAMOUNT\tNEXT\tLAST SEEN\tCATEGORY\tACTIVE")
			_, _ = fmt.Fprintln(w, "──\t────────\t─────────\t──────\t────\t─────────\t────────\t──────")
			for _, r := range rules {
				if !r.IsActive && !all {
					continue
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
					r.ID,
					truncateString(r.MerchantPattern, 28),
					strings.ToLower(string(r.Frequency)),
					cli.FormatAmount(r.ExpectedAmount),
					r.NextExpected.Format(dateLayout),
					formatDate(r.LastOccurrence),
					categoryLabel(names, r.CategoryID),
					r.IsActive)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Bool("all", false, "include deactivated rules")
	return cmd
}

func patternsDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <rule id>",
		Short: "Stop tracking a recurring rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := store.DeactivateRule(ctx, id); err != nil {
				return fmt.Errorf("failed to deactivate rule %d: %w", id, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Rule %d deactivated", id)))
			return nil
		},
	}
}
