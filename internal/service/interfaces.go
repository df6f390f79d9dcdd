// Package service defines the contracts between the analysis core and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Period is a half-open time range [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// LastMonths returns the period covering the months before now.
func LastMonths(now time.Time, months int) Period {
	return Period{Start: now.AddDate(0, -months, 0), End: now}
}

// MessageSource provides raw messages from an inbox.
type MessageSource interface {
	ReadMessages(ctx context.Context, period Period) ([]model.RawMessage, error)
}

// TransactionStore persists parsed transactions.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, txn model.Transaction) (string, error)
	ExistsByRawBody(ctx context.Context, body string) (bool, error)
	GetAllTransactions(ctx context.Context) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id string, categoryID int) error
}

// MappingStore persists merchant mappings.
type MappingStore interface {
	// FindMappingByRawName returns nil when no mapping exists for the normalized name.
	FindMappingByRawName(ctx context.Context, rawName string) (*model.MerchantMapping, error)
	FindAllMappings(ctx context.Context) ([]model.MerchantMapping, error)
	InsertMapping(ctx context.Context, mapping *model.MerchantMapping) error
	IncrementMappingUsage(ctx context.Context, id int) error
}

// RuleStore persists confirmed recurring rules.
type RuleStore interface {
	// GetActiveRules returns the rules that were active at asOf, including rules deactivated later.
	GetActiveRules(ctx context.Context, asOf time.Time) ([]model.RecurringRule, error)
	// FindRuleByMerchantPattern returns nil when no active rule exists for the pattern.
	FindRuleByMerchantPattern(ctx context.Context, pattern string) (*model.RecurringRule, error)
	InsertRule(ctx context.Context, rule *model.RecurringRule) (int64, error)
	DeactivateRule(ctx context.Context, id int64) error
}

// SuggestionStore persists detected pattern suggestions until they are confirmed or dismissed.
type SuggestionStore interface {
	// CreateFromDetection returns nil when a pending or dismissed suggestion for the same
	// merchant already exists.
	CreateFromDetection(ctx context.Context, suggestion model.PatternSuggestion) (*model.Suggestion, error)
	ConfirmSuggestion(ctx context.Context, id int64) (int64, error)
	DismissSuggestion(ctx context.Context, id int64) error
	CleanupOldDismissed(ctx context.Context, olderThan time.Duration) (int64, error)
	ListPendingSuggestions(ctx context.Context) ([]model.Suggestion, error)
	GetSuggestion(ctx context.Context, id int64) (*model.Suggestion, error)
}

// CategoryStore persists spending categories.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	// GetCategoryByName returns nil when no active category has the name.
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
}

// NotificationSink delivers events to the user. Delivery is best-effort and callers
// log failures instead of propagating them.
type NotificationSink interface {
	Notify(ctx context.Context, event model.Event) error
}

// Storage aggregates every store contract.
type Storage interface {
	TransactionStore
	MappingStore
	RuleStore
	SuggestionStore
	CategoryStore

	Migrate(ctx context.Context) error
	Close() error
}
