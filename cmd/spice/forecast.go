package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/forecast"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/spf13/cobra"
)

func forecastCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast upcoming expenses",
		Long: `Predict next month's recurring charges, spot subscriptions that just started
or stopped, and estimate next month's budget.`,
	}

	cmd.AddCommand(forecastNextMonthCmd())
	cmd.AddCommand(forecastNewCmd())
	cmd.AddCommand(forecastDormantCmd())
	cmd.AddCommand(forecastHealthCmd())
	cmd.AddCommand(forecastBudgetCmd())

	return cmd
}

func forecastNextMonthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next-month",
		Short: "List the recurring charges expected next month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			predictor, err := newPredictor(store)
			if err != nil {
				return err
			}
			expenses, err := predictor.PredictNextMonthExpenses(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(expenses) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No recurring charges expected next month"))
				return nil
			}

			var total float64
			w := newTable(cmd)
			_, _ = fmt.Fprintln(w, "DATE\tMERCHANT\tAMOUNT\tFREQUENCY\tSOURCE\tCONFIDENCE")
			_, _ = fmt.Fprintln(w, "────\t────────\t──────\t─────────\t──────\t──────────")
			for _, e := range expenses {
				total += e.Amount
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.0f%%\n",
					e.Date.Format(dateLayout),
					truncateString(e.DisplayName, 28),
					cli.FormatAmount(e.Amount),
					strings.ToLower(string(e.Frequency)),
					strings.ToLower(string(e.Source)),
					e.Confidence*100)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(out, "\n%s Expected total: %s\n", cli.ChartIcon, cli.FormatAmount(total))
			return nil
		},
	}
}

func forecastNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "List subscriptions that started recently",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			predictor, err := newPredictor(store)
			if err != nil {
				return err
			}
			subs, err := predictor.IdentifyNewSubscriptions(ctx)
			if err != nil {
				return err
			}
			if len(subs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No new subscriptions"))
				return nil
			}

			w := newTable(cmd)
			_, _ = fmt.Fprintln(w, "MERCHANT\tFIRST SEEN\tAMOUNT\tCHARGES\tFREQUENCY\tCONFIDENCE")
			_, _ = fmt.Fprintln(w, "────────\t──────────\t──────\t───────\t─────────\t──────────")
			for _, s := range subs {
				frequency := "unknown"
				if s.Frequency != nil {
					frequency = strings.ToLower(string(*s.Frequency))
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%.0f%%\n",
					truncateString(s.DisplayName, 28),
					s.FirstSeen.Format(dateLayout),
					cli.FormatAmount(s.AverageAmount),
					s.Occurrences,
					frequency,
					s.Confidence*100)
			}
			return w.Flush()
		},
	}
}

func forecastDormantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dormant",
		Short: "List confirmed subscriptions that stopped charging",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			predictor, err := newPredictor(store)
			if err != nil {
				return err
			}
			dormant, err := predictor.FlagDormantSubscriptions(ctx)
			if err != nil {
				return err
			}
			if len(dormant) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Every confirmed subscription is still charging"))
				return nil
			}

			w := newTable(cmd)
			_, _ = fmt.Fprintln(w, "RULE\tMERCHANT\tSTATUS\tLAST SEEN\tDAYS\tMISSED\tAMOUNT")
			_, _ = fmt.Fprintln(w, "────\t────────\t──────\t─────────\t────\t──────\t──────")
			for _, d := range dormant {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
					d.Rule.ID,
					truncateString(d.Rule.MerchantPattern, 28),
					dormantLabel(d.Status),
					formatDate(d.LastSeen),
					d.DaysSinceLastSeen,
					d.MissedPayments,
					cli.FormatAmount(d.Rule.ExpectedAmount))
			}
			return w.Flush()
		},
	}
}

func dormantLabel(status model.DormantStatus) string {
	return strings.ReplaceAll(strings.ToLower(string(status)), "_", " ")
}

func forecastHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize recurring expenses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			predictor, err := newPredictor(store)
			if err != nil {
				return err
			}
			health, err := predictor.RecurringHealthSummary(ctx)
			if err != nil {
				return err
			}

			lines := []string{
				fmt.Sprintf("Expected next month:  %s", cli.FormatAmount(health.PredictedTotal)),
				fmt.Sprintf("  Confirmed (%d):      %s", health.ConfirmedCount, cli.FormatAmount(health.ConfirmedTotal)),
				fmt.Sprintf("  Detected (%d):       %s", health.DetectedCount, cli.FormatAmount(health.DetectedTotal)),
				fmt.Sprintf("New subscriptions:    %d", health.NewSubscriptionCount),
				fmt.Sprintf("Dormant subscriptions: %d", health.DormantCount),
			}
			if health.PotentialSavings > 0 {
				lines = append(lines, fmt.Sprintf("Potential savings:    %s", cli.FormatAmount(health.PotentialSavings)))
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.RepeatIcon+" Recurring health", strings.Join(lines, "\n")))
			return nil
		},
	}
}

func forecastBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Estimate next month's spending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			months, _ := cmd.Flags().GetInt("months")
			if !cmd.Flags().Changed("months") {
				months = settings.BudgetMonths
			}

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			matcher, err := settings.Matcher()
			if err != nil {
				return err
			}
			budget, err := forecast.NewBudgetForecaster(store, store, matcher).Forecast(ctx, months)
			if err != nil {
				return err
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}

			lines := []string{
				fmt.Sprintf("Recurring: %s", cli.FormatAmount(budget.RecurringTotal)),
				fmt.Sprintf("Variable:  %s", cli.FormatAmount(budget.VariableTotal)),
				fmt.Sprintf("Total:     %s", cli.FormatAmount(budget.Total)),
				fmt.Sprintf("Based on %d months of data (%s confidence)", budget.MonthsOfData, strings.ToLower(string(budget.Confidence))),
			}

			ids := make([]int, 0, len(budget.ByCategory))
			for id := range budget.ByCategory {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			if len(ids) > 0 {
				lines = append(lines, "", "By category:")
				for _, id := range ids {
					lines = append(lines, fmt.Sprintf("  %-20s %s", categoryLabel(names, id), cli.FormatAmount(budget.ByCategory[id])))
				}
			}

			title := fmt.Sprintf("%s Budget for %s", cli.ChartIcon, budget.Month.Format("January 2006"))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(title, strings.Join(lines, "\n")))
			return nil
		},
	}

	cmd.Flags().IntP("months", "m", forecast.DefaultBudgetMonths, "months of history to average variable spending over")
	return cmd
}
