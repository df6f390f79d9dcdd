package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
)

const categoryColumns = `id, name, created_at, is_active`

// GetCategories returns all active categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt, &cat.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns an active category or common.ErrNotFound.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	cat, err := getCategory(ctx, s.db, `id = ? AND is_active = 1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	return cat, err
}

// GetCategoryByName returns an active category by name, or nil when none exists.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	cat, err := getCategory(ctx, s.db, `name = ? AND is_active = 1`, strings.TrimSpace(name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return cat, err
}

// CreateCategory creates a category, reactivating an inactive one with the same name.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	var created *model.Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getCategory(ctx, tx, `name = ?`, name)
		switch {
		case err == nil:
			if !existing.IsActive {
				if _, err := tx.ExecContext(ctx, `UPDATE categories SET is_active = 1 WHERE id = ?`, existing.ID); err != nil {
					return fmt.Errorf("failed to reactivate category: %w", err)
				}
				existing.IsActive = true
				slog.Info("reactivated existing category", "name", name)
			}
			created = existing
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO categories (name, created_at, is_active) VALUES (?, ?, 1)`, name, now)
		if err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get category ID: %w", err)
		}

		created = &model.Category{ID: int(id), Name: name, CreatedAt: now, IsActive: true}
		slog.Info("created new category", "name", name, "id", id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteCategory deactivates a category. Transactions and mappings keep their category id.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE categories SET is_active = 0 WHERE id = ? AND is_active = 1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	return nil
}

func getCategory(ctx context.Context, q queryable, where string, args ...any) (*model.Category, error) {
	var cat model.Category
	err := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where, args...).Scan(
		&cat.ID, &cat.Name, &cat.CreatedAt, &cat.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}
