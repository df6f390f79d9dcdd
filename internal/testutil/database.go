// Package testutil provides test helpers shared across packages: an in-memory database with
// seeded categories and builders for transaction histories.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sms/internal/storage"
)

// Common category names used across tests.
const (
	CategoryFoodDining    = "Food & Dining"
	CategorySubscriptions = "Subscription Services"
	CategoryUtilities     = "Utilities"
	CategoryShopping      = "Shopping"
)

// BasicCategories is the minimal set of categories most tests need.
var BasicCategories = []string{
	CategoryFoodDining,
	CategorySubscriptions,
	CategoryUtilities,
	CategoryShopping,
}

// TestDB is a migrated in-memory database with its seeded categories.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	Categories map[string]int
}

// SetupTestDB creates a migrated in-memory database seeded with the named categories.
// The database is closed when the test finishes.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.BasicCategories...)
//	foodID := db.MustCategoryID(testutil.CategoryFoodDining)
func SetupTestDB(t *testing.T, categoryNames ...string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	cats := make(map[string]int, len(categoryNames))
	for _, name := range categoryNames {
		cat, err := store.CreateCategory(ctx, name)
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
		cats[name] = cat.ID
	}

	return &TestDB{
		Storage:    store,
		Categories: cats,
		t:          t,
	}
}

// MustCategoryID returns the id of a seeded category or fails the test.
func (db *TestDB) MustCategoryID(name string) int {
	db.t.Helper()
	id, ok := db.Categories[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return id
}
