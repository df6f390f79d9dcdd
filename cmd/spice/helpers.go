package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/forecast"
	"github.com/Veraticus/spice-sms/internal/merchant"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/storage"
	"github.com/spf13/cobra"
)

// envKeyReplacer maps nested keys such as database.path to SPICE_DATABASE_PATH.
var envKeyReplacer = strings.NewReplacer(".", "_")

const dateLayout = "2006-01-02"

// openStorage opens the configured database and brings its schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, func(), error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	cleanup := func() { _ = store.Close() }

	if err := store.Migrate(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, cleanup, nil
}

func newResolver(store service.MappingStore) *merchant.Resolver {
	return merchant.NewResolver(store).WithThreshold(settings.SimilarityThreshold)
}

func newDetector(store service.Storage) *pattern.Detector {
	return pattern.NewDetector(store, store, store, settings.Pattern).WithResolver(newResolver(store))
}

func newPredictor(store service.Storage) (*forecast.Predictor, error) {
	opts, err := settings.ForecastOptions()
	if err != nil {
		return nil, err
	}
	return forecast.NewPredictor(store, store, newDetector(store), opts), nil
}

// parsePeriod builds the scan window from --since/--until or, failing that, --months.
func parsePeriod(cmd *cobra.Command, now time.Time) (service.Period, error) {
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")
	months, _ := cmd.Flags().GetInt("months")

	if since == "" && until == "" {
		if months <= 0 {
			return service.Period{}, common.NewUserError("--months must be positive", nil)
		}
		return service.LastMonths(now, months), nil
	}

	period := service.Period{End: now}
	if since != "" {
		t, err := time.ParseInLocation(dateLayout, since, now.Location())
		if err != nil {
			return service.Period{}, common.NewUserError("--since must be YYYY-MM-DD", err)
		}
		period.Start = t
	}
	if until != "" {
		t, err := time.ParseInLocation(dateLayout, until, now.Location())
		if err != nil {
			return service.Period{}, common.NewUserError("--until must be YYYY-MM-DD", err)
		}
		period.End = t.AddDate(0, 0, 1)
	}
	if !period.Start.Before(period.End) {
		return service.Period{}, common.NewUserError("--since must be before --until", nil)
	}
	return period, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid id %q", arg), err)
	}
	return id, nil
}

// resolveCategory finds a category by name, creating it when create is set.
func resolveCategory(ctx context.Context, store service.CategoryStore, name string, create bool) (int, error) {
	if name == "" {
		return 0, nil
	}
	category, err := store.GetCategoryByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to look up category: %w", err)
	}
	if category != nil {
		return category.ID, nil
	}
	if !create {
		return 0, common.NewUserError(fmt.Sprintf("category %q does not exist (use --create-category)", name), nil)
	}
	category, err = store.CreateCategory(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}
	return category.ID, nil
}

// categoryNames maps category ids to names for display.
func categoryNames(ctx context.Context, store service.CategoryStore) (map[int]string, error) {
	categories, err := store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func categoryLabel(names map[int]string, id int) string {
	if id == 0 {
		return "-"
	}
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format(dateLayout)
}
