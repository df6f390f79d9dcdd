package merchant

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
)

// Categorizer applies resolved mappings to stored transactions.
type Categorizer struct {
	resolver *Resolver
	mappings service.MappingStore
	txns     service.TransactionStore
}

// NewCategorizer creates a categorizer that resolves through resolver and writes to the stores.
func NewCategorizer(resolver *Resolver, mappings service.MappingStore, txns service.TransactionStore) *Categorizer {
	return &Categorizer{
		resolver: resolver,
		mappings: mappings,
		txns:     txns,
	}
}

// Categorize resolves the merchant of a stored transaction and, when the match can be trusted
// without confirmation, assigns the mapping's category and records the usage.
// The returned match lets callers queue the remaining cases for review.
func (c *Categorizer) Categorize(ctx context.Context, txn model.Transaction) (Match, error) {
	match, err := c.resolver.FindMatch(ctx, txn.Merchant)
	if err != nil {
		return Match{}, err
	}

	switch match.Type {
	case MatchExact:
	case MatchFuzzy:
		if match.RequiresConfirmation {
			return match, nil
		}
	case MatchNone:
		return match, nil
	default:
		return match, fmt.Errorf("unknown match type %q", match.Type)
	}

	if match.Mapping.CategoryID != 0 && txn.ID != "" {
		if err := c.txns.UpdateTransactionCategory(ctx, txn.ID, match.Mapping.CategoryID); err != nil {
			return match, fmt.Errorf("failed to categorize transaction %s: %w", txn.ID, err)
		}
	}
	if err := c.mappings.IncrementMappingUsage(ctx, match.Mapping.ID); err != nil {
		return match, fmt.Errorf("failed to record mapping usage: %w", err)
	}

	return match, nil
}
