package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/similarity"
)

const suggestionColumns = `
	id, merchant_pattern, display_name, average_amount, frequency, day_of_period,
	occurrences, confidence, next_date, category_id, status, rule_id, created_at, updated_at`

// CreateFromDetection stores a detected suggestion. It returns nil without error when the
// merchant already has a pending or dismissed suggestion or an active rule.
func (s *SQLiteStorage) CreateFromDetection(ctx context.Context, suggestion model.PatternSuggestion) (*model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSuggestion(&suggestion); err != nil {
		return nil, err
	}
	suggestion.MerchantPattern = similarity.Normalize(suggestion.MerchantPattern)

	var created *model.Suggestion
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM pattern_suggestions
			WHERE merchant_pattern = ? AND status IN (?, ?)`,
			suggestion.MerchantPattern, string(model.SuggestionPending), string(model.SuggestionDismissed),
		).Scan(&existing)
		if err != nil {
			return fmt.Errorf("failed to check existing suggestions: %w", err)
		}
		if existing > 0 {
			return nil
		}

		rule, err := s.findRuleByMerchantPatternTx(ctx, tx, suggestion.MerchantPattern)
		if err != nil {
			return err
		}
		if rule != nil {
			return nil
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO pattern_suggestions (
				merchant_pattern, display_name, average_amount, frequency, day_of_period,
				occurrences, confidence, next_date, category_id, status, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			suggestion.MerchantPattern, suggestion.DisplayName, suggestion.AverageAmount,
			string(suggestion.Frequency), suggestion.DayOfPeriod, suggestion.Occurrences,
			suggestion.Confidence, suggestion.NextDate, suggestion.CategoryID,
			string(model.SuggestionPending), now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("failed to insert suggestion: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get suggestion ID: %w", err)
		}

		created = &model.Suggestion{
			ID:                id,
			Status:            model.SuggestionPending,
			PatternSuggestion: suggestion,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created == nil {
		slog.Debug("Skipped duplicate suggestion", "merchant", suggestion.MerchantPattern)
	}
	return created, nil
}

// GetSuggestion returns one suggestion or common.ErrNotFound.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, id int64) (*model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getSuggestionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getSuggestionTx(ctx context.Context, q queryable, id int64) (*model.Suggestion, error) {
	suggestions, err := s.querySuggestions(ctx, q,
		`SELECT `+suggestionColumns+` FROM pattern_suggestions WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("suggestion %d: %w", id, common.ErrNotFound)
	}
	return &suggestions[0], nil
}

// ListPendingSuggestions returns pending suggestions, most confident first.
func (s *SQLiteStorage) ListPendingSuggestions(ctx context.Context) ([]model.Suggestion, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.querySuggestions(ctx, s.db,
		`SELECT `+suggestionColumns+` FROM pattern_suggestions
		WHERE status = ?
		ORDER BY confidence DESC, id`, string(model.SuggestionPending))
}

// ConfirmSuggestion converts a pending suggestion into an active recurring rule and returns the
// rule id. Confirming an already confirmed suggestion returns its existing rule.
func (s *SQLiteStorage) ConfirmSuggestion(ctx context.Context, id int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var ruleID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		suggestion, err := s.getSuggestionTx(ctx, tx, id)
		if err != nil {
			return err
		}

		switch suggestion.Status {
		case model.SuggestionConfirmed:
			if suggestion.RuleID != nil {
				ruleID = *suggestion.RuleID
				return nil
			}
			return fmt.Errorf("suggestion %d: %w", id, ErrSuggestionState)
		case model.SuggestionDismissed:
			return fmt.Errorf("suggestion %d was dismissed: %w", id, ErrSuggestionState)
		case model.SuggestionPending:
		default:
			return fmt.Errorf("suggestion %d has unknown status %q: %w", id, suggestion.Status, ErrSuggestionState)
		}

		existing, err := s.findRuleByMerchantPatternTx(ctx, tx, suggestion.MerchantPattern)
		if err != nil {
			return err
		}
		if existing != nil {
			ruleID = existing.ID
		} else {
			rule := model.RuleFromSuggestion(suggestion.PatternSuggestion)
			if ruleID, err = s.insertRuleTx(ctx, tx, &rule); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE pattern_suggestions SET status = ?, rule_id = ?, updated_at = ? WHERE id = ?`,
			string(model.SuggestionConfirmed), ruleID, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to mark suggestion confirmed: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return ruleID, nil
}

// DismissSuggestion marks a pending suggestion dismissed so detection does not offer it again.
func (s *SQLiteStorage) DismissSuggestion(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		suggestion, err := s.getSuggestionTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if suggestion.Status == model.SuggestionDismissed {
			return nil
		}
		if suggestion.Status != model.SuggestionPending {
			return fmt.Errorf("suggestion %d: %w", id, ErrSuggestionState)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE pattern_suggestions SET status = ?, updated_at = ? WHERE id = ?`,
			string(model.SuggestionDismissed), time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to dismiss suggestion: %w", err)
		}
		return nil
	})
}

// CleanupOldDismissed deletes suggestions dismissed more than olderThan ago, letting their
// merchants be suggested again. It returns how many were deleted.
func (s *SQLiteStorage) CleanupOldDismissed(ctx context.Context, olderThan time.Duration) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	dismissed, err := s.querySuggestions(ctx, s.db,
		`SELECT `+suggestionColumns+` FROM pattern_suggestions WHERE status = ?`,
		string(model.SuggestionDismissed))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-olderThan)
	var deleted int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, suggestion := range dismissed {
			if !suggestion.UpdatedAt.Before(cutoff) {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM pattern_suggestions WHERE id = ?`, suggestion.ID); err != nil {
				return fmt.Errorf("failed to delete suggestion %d: %w", suggestion.ID, err)
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		slog.Info("Cleaned up dismissed suggestions", "count", deleted)
	}
	return deleted, nil
}

func (s *SQLiteStorage) querySuggestions(ctx context.Context, q queryable, query string, args ...any) ([]model.Suggestion, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		var frequency, status string
		var ruleID sql.NullInt64
		err := rows.Scan(
			&sg.ID, &sg.MerchantPattern, &sg.DisplayName, &sg.AverageAmount, &frequency,
			&sg.DayOfPeriod, &sg.Occurrences, &sg.Confidence, &sg.NextDate, &sg.CategoryID,
			&status, &ruleID, &sg.CreatedAt, &sg.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		sg.Frequency = model.Frequency(frequency)
		sg.Status = model.SuggestionStatus(status)
		if ruleID.Valid {
			id := ruleID.Int64
			sg.RuleID = &id
		}
		suggestions = append(suggestions, sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}
	return suggestions, nil
}

// IsSuggestionStateError reports whether err came from acting on a suggestion in the wrong state.
func IsSuggestionStateError(err error) bool {
	return errors.Is(err, ErrSuggestionState)
}
