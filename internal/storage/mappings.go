package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/similarity"
)

const mappingColumns = `id, raw_name, display_name, category_id, confidence, usage_count, source, last_updated`

// FindMappingByRawName returns the mapping for a raw merchant name, or nil when none exists.
func (s *SQLiteStorage) FindMappingByRawName(ctx context.Context, rawName string) (*model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(rawName, "rawName"); err != nil {
		return nil, err
	}

	mapping, err := scanMapping(s.db.QueryRowContext(ctx,
		`SELECT `+mappingColumns+` FROM merchant_mappings WHERE raw_name = ?`,
		similarity.Normalize(rawName)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query mapping: %w", err)
	}
	return mapping, nil
}

// FindAllMappings returns every mapping, most used first.
func (s *SQLiteStorage) FindAllMappings(ctx context.Context) ([]model.MerchantMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mappingColumns+` FROM merchant_mappings ORDER BY usage_count DESC, raw_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.MerchantMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mappings: %w", err)
	}
	return mappings, nil
}

// InsertMapping stores a mapping keyed on its normalized raw name. An existing mapping for the
// same name is replaced but keeps its usage count.
func (s *SQLiteStorage) InsertMapping(ctx context.Context, mapping *model.MerchantMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	mapping.RawName = similarity.Normalize(mapping.RawName)
	if mapping.Source == "" {
		mapping.Source = model.SourceAuto
	}
	if mapping.LastUpdated.IsZero() {
		mapping.LastUpdated = time.Now()
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO merchant_mappings (raw_name, display_name, category_id, confidence, source, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(raw_name) DO UPDATE SET
			display_name = excluded.display_name,
			category_id = excluded.category_id,
			confidence = excluded.confidence,
			source = excluded.source,
			last_updated = excluded.last_updated
		RETURNING id, usage_count`,
		mapping.RawName, mapping.DisplayName, mapping.CategoryID, mapping.Confidence,
		string(mapping.Source), mapping.LastUpdated,
	).Scan(&mapping.ID, &mapping.UsageCount)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	return nil
}

// IncrementMappingUsage records one more use of a mapping.
func (s *SQLiteStorage) IncrementMappingUsage(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE merchant_mappings SET usage_count = usage_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to update mapping usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mapping %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteMapping removes a mapping by id.
func (s *SQLiteStorage) DeleteMapping(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM merchant_mappings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mapping %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (*model.MerchantMapping, error) {
	var mapping model.MerchantMapping
	var source string
	err := row.Scan(
		&mapping.ID, &mapping.RawName, &mapping.DisplayName, &mapping.CategoryID,
		&mapping.Confidence, &mapping.UsageCount, &source, &mapping.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	mapping.Source = model.MappingSource(source)
	return &mapping, nil
}
