// Package storage provides the SQLite persistence layer for transactions, merchant mappings,
// recurring rules and pattern suggestions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidMapping     = errors.New("invalid merchant mapping")
	ErrInvalidRule        = errors.New("invalid recurring rule")
	ErrInvalidSuggestion  = errors.New("invalid pattern suggestion")
	ErrSuggestionState    = errors.New("suggestion is not pending")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validConfidence(c float64) bool {
	return c >= 0 && c <= 1
}

// validateTransaction validates a single transaction before it is stored.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidTransaction, txn.Amount)
	}
	if strings.TrimSpace(txn.Merchant) == "" {
		return fmt.Errorf("%w: missing merchant", ErrInvalidTransaction)
	}
	switch txn.Direction {
	case model.DirectionDebit, model.DirectionCredit:
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidTransaction, txn.Direction)
	}
	switch txn.Source {
	case model.SourceSMS, model.SourceOFX:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidTransaction, txn.Source)
	}
	if !validConfidence(txn.Confidence) {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidTransaction)
	}
	return nil
}

// validateMapping validates a merchant mapping.
func validateMapping(mapping *model.MerchantMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if strings.TrimSpace(mapping.RawName) == "" {
		return fmt.Errorf("%w: missing raw name", ErrInvalidMapping)
	}
	if strings.TrimSpace(mapping.DisplayName) == "" {
		return fmt.Errorf("%w: missing display name", ErrInvalidMapping)
	}
	if !validConfidence(mapping.Confidence) {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidMapping)
	}
	return nil
}

// validateRule validates a recurring rule.
func validateRule(rule *model.RecurringRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.MerchantPattern) == "" {
		return fmt.Errorf("%w: missing merchant pattern", ErrInvalidRule)
	}
	if !rule.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidRule, rule.Frequency)
	}
	if rule.ExpectedAmount <= 0 {
		return fmt.Errorf("%w: expected amount must be positive", ErrInvalidRule)
	}
	return nil
}

// validateSuggestion validates a detected suggestion.
func validateSuggestion(s *model.PatternSuggestion) error {
	if s == nil {
		return fmt.Errorf("%w: suggestion", ErrNilParameter)
	}
	if strings.TrimSpace(s.MerchantPattern) == "" {
		return fmt.Errorf("%w: missing merchant pattern", ErrInvalidSuggestion)
	}
	if !s.Frequency.Valid() {
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidSuggestion, s.Frequency)
	}
	if s.Occurrences < 2 {
		return fmt.Errorf("%w: needs at least 2 occurrences, got %d", ErrInvalidSuggestion, s.Occurrences)
	}
	if !validConfidence(s.Confidence) {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidSuggestion)
	}
	return nil
}
