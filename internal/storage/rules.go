package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/common"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/similarity"
)

const ruleColumns = `
	id, merchant_pattern, frequency, expected_amount, next_expected, last_occurrence,
	is_active, category_id, created_at, deactivated_at`

// InsertRule stores a recurring rule and returns its id.
func (s *SQLiteStorage) InsertRule(ctx context.Context, rule *model.RecurringRule) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.insertRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) insertRuleTx(ctx context.Context, q queryable, rule *model.RecurringRule) (int64, error) {
	if err := validateRule(rule); err != nil {
		return 0, err
	}

	rule.MerchantPattern = similarity.Normalize(rule.MerchantPattern)
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}

	var lastOccurrence any
	if rule.LastOccurrence != nil {
		lastOccurrence = *rule.LastOccurrence
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO recurring_rules (
			merchant_pattern, frequency, expected_amount, next_expected, last_occurrence,
			is_active, category_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.MerchantPattern, string(rule.Frequency), rule.ExpectedAmount, rule.NextExpected,
		lastOccurrence, rule.IsActive, rule.CategoryID, rule.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert recurring rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get recurring rule ID: %w", err)
	}
	rule.ID = id

	return id, nil
}

// GetActiveRules returns the rules that were active at asOf: currently active rules plus rules
// deactivated after asOf.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context, asOf time.Time) ([]model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	all, err := s.queryRules(ctx, s.db,
		`SELECT `+ruleColumns+` FROM recurring_rules
		WHERE is_active = 1 OR deactivated_at IS NOT NULL
		ORDER BY id`)
	if err != nil {
		return nil, err
	}

	active := all[:0]
	for _, r := range all {
		if r.rule.IsActive || (r.deactivatedAt != nil && r.deactivatedAt.After(asOf)) {
			active = append(active, r)
		}
	}

	rules := make([]model.RecurringRule, len(active))
	for i, r := range active {
		rules[i] = r.rule
	}
	return rules, nil
}

// ListRules returns every rule, active or not.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.queryRules(ctx, s.db, `SELECT `+ruleColumns+` FROM recurring_rules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	rules := make([]model.RecurringRule, len(rows))
	for i, r := range rows {
		rules[i] = r.rule
	}
	return rules, nil
}

// FindRuleByMerchantPattern returns the active rule for a merchant pattern, or nil.
func (s *SQLiteStorage) FindRuleByMerchantPattern(ctx context.Context, pattern string) (*model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return nil, err
	}
	return s.findRuleByMerchantPatternTx(ctx, s.db, pattern)
}

func (s *SQLiteStorage) findRuleByMerchantPatternTx(ctx context.Context, q queryable, pattern string) (*model.RecurringRule, error) {
	rows, err := s.queryRules(ctx, q,
		`SELECT `+ruleColumns+` FROM recurring_rules
		WHERE merchant_pattern = ? AND is_active = 1
		ORDER BY id LIMIT 1`, similarity.Normalize(pattern))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0].rule, nil
}

// DeactivateRule marks a rule inactive.
func (s *SQLiteStorage) DeactivateRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE recurring_rules SET is_active = 0, deactivated_at = ? WHERE id = ? AND is_active = 1`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("active rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// ruleRow carries the deactivation time alongside the rule.
type ruleRow struct {
	deactivatedAt *time.Time
	rule          model.RecurringRule
}

func (s *SQLiteStorage) queryRules(ctx context.Context, q queryable, query string, args ...any) ([]ruleRow, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ruleRow
	for rows.Next() {
		var r ruleRow
		var frequency string
		var lastOccurrence, deactivatedAt sql.NullTime
		err := rows.Scan(
			&r.rule.ID, &r.rule.MerchantPattern, &frequency, &r.rule.ExpectedAmount,
			&r.rule.NextExpected, &lastOccurrence, &r.rule.IsActive, &r.rule.CategoryID,
			&r.rule.CreatedAt, &deactivatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		r.rule.Frequency = model.Frequency(frequency)
		r.rule.LastOccurrence = timeFromNull(lastOccurrence)
		r.deactivatedAt = timeFromNull(deactivatedAt)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring rules: %w", err)
	}
	return out, nil
}

// GetRule returns one rule by id or common.ErrNotFound.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.RecurringRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.queryRules(ctx, s.db, `SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return &rows[0].rule, nil
}
