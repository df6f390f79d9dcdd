// Package pattern mines transaction history for recurring expenses such as subscriptions and bills.
package pattern

import (
	"context"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Detection is anything that can produce pattern suggestions from the current history.
type Detection interface {
	DetectPatterns(ctx context.Context) ([]model.PatternSuggestion, error)
}

// Clusterer groups transactions by canonical merchant.
type Clusterer interface {
	GroupTransactionsByMerchant(txns []model.Transaction) []Cluster
}

// Cluster is a group of debit transactions that resolve to the same canonical merchant.
type Cluster struct {
	Key          string
	Transactions []model.Transaction
}
