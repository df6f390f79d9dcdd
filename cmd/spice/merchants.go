package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/merchant"
	"github.com/spf13/cobra"
)

func merchantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "merchants",
		Aliases: []string{"merchant"},
		Short:   "Manage merchant name mappings",
		Long: `Map the raw merchant names found in bank messages to display names and
categories. Close variants of a mapped name are matched fuzzily.`,
	}

	cmd.AddCommand(merchantsResolveCmd())
	cmd.AddCommand(merchantsMapCmd())
	cmd.AddCommand(merchantsConfirmCmd())
	cmd.AddCommand(merchantsListCmd())
	cmd.AddCommand(merchantsDeleteCmd())

	return cmd
}

func merchantsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <raw name>",
		Short: "Show how a raw merchant name resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			match, err := newResolver(store).FindMatch(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve merchant: %w", err)
			}

			out := cmd.OutOrStdout()
			if match.Type == merchant.MatchNone {
				_, _ = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No mapping matches %q", args[0])))
				return nil
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}
			lines := []string{
				"Match:       " + strings.ToLower(string(match.Type)),
				"Mapped name: " + match.Mapping.RawName,
				"Display:     " + match.Mapping.DisplayName,
				"Category:    " + categoryLabel(names, match.Mapping.CategoryID),
				"Confidence:  " + cli.FormatConfidence(match.Confidence),
			}
			_, _ = fmt.Fprintln(out, cli.RenderBox(args[0], strings.Join(lines, "\n")))
			if match.RequiresConfirmation {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("Run spice merchants confirm to accept this match"))
			}
			return nil
		},
	}
}

func merchantsMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <raw name> <display name>",
		Short: "Create or replace a mapping",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			categoryName, _ := cmd.Flags().GetString("category")
			create, _ := cmd.Flags().GetBool("create-category")

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			categoryID, err := resolveCategory(ctx, store, categoryName, create)
			if err != nil {
				return err
			}

			mapping, err := newResolver(store).CreateMapping(ctx, args[0], args[1], categoryID)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Mapped %q to %s", mapping.RawName, mapping.DisplayName)))
			return nil
		},
	}

	cmd.Flags().StringP("category", "c", "", "category for the merchant")
	cmd.Flags().Bool("create-category", false, "create the category if it does not exist")
	return cmd
}

func merchantsConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm <raw name>",
		Short: "Accept or reject the fuzzy match for a raw name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			yes, _ := cmd.Flags().GetBool("yes")

			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			resolver := newResolver(store)
			match, err := resolver.FindMatch(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve merchant: %w", err)
			}

			out := cmd.OutOrStdout()
			switch match.Type {
			case merchant.MatchExact:
				_, _ = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%q is already mapped to %s", args[0], match.Mapping.DisplayName)))
				return nil
			case merchant.MatchNone:
				return common.NewUserError(fmt.Sprintf("no mapping is close to %q; use spice merchants map", args[0]), nil)
			}

			accept := yes
			if !accept {
				question := fmt.Sprintf("Treat %q as %s (%s match)?",
					args[0], match.Mapping.DisplayName, cli.FormatConfidence(match.Confidence))
				accept, err = cli.NewConfirmer(cmd.InOrStdin(), out).Confirm(ctx, question, true)
				if err != nil {
					return err
				}
			}

			if !accept {
				resolver.RejectFuzzyMatch(ctx, args[0], *match.Mapping)
				_, _ = fmt.Fprintln(out, cli.FormatInfo("Match rejected"))
				return nil
			}

			mapping, err := resolver.ConfirmFuzzyMatch(ctx, args[0], *match.Mapping)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Mapped %q to %s", mapping.RawName, mapping.DisplayName)))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "accept without asking")
	return cmd
}

func merchantsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List merchant mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			mappings, err := store.FindAllMappings(ctx)
			if err != nil {
				return fmt.Errorf("failed to list mappings: %w", err)
			}
			if len(mappings) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No merchant mappings yet"))
				return nil
			}

			names, err := categoryNames(ctx, store)
			if err != nil {
				return err
			}

			w := newTable(cmd)
			_, _ = fmt.Fprintln(w, "ID\tRAW NAME\tDISPLAY\tCATEGORY\tSOURCE\tUSES")
			_, _ = fmt.Fprintln(w, "──\t────────\t───────\t────────\t──────\t────")
			for _, m := range mappings {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\n",
					m.ID,
					truncateString(m.RawName, 30),
					truncateString(m.DisplayName, 30),
					categoryLabel(names, m.CategoryID),
					strings.ToLower(string(m.Source)),
					m.UsageCount)
			}
			return w.Flush()
		},
	}
}

func merchantsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a merchant mapping",
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

			if err := store.DeleteMapping(ctx, int(id)); err != nil {
				return fmt.Errorf("failed to delete mapping %d: %w", id, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted mapping %d", id)))
			return nil
		},
	}
}
