// Package merchant resolves raw merchant strings to known mappings.
package merchant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/similarity"
)

// MatchType classifies how a raw merchant name was resolved.
type MatchType string

// Match type constants.
const (
	MatchExact MatchType = "EXACT"
	MatchFuzzy MatchType = "FUZZY"
	MatchNone  MatchType = "NONE"
)

// Thresholds used during resolution.
const (
	FuzzyThreshold      = similarity.DefaultThreshold
	AutoAcceptThreshold = 0.95
)

// Match is the outcome of resolving one raw merchant name.
type Match struct {
	Mapping              *model.MerchantMapping
	Type                 MatchType
	Confidence           float64
	RequiresConfirmation bool
}

// Resolver matches raw merchant names against stored mappings.
type Resolver struct {
	store     service.MappingStore
	threshold float64
	now       func() time.Time
}

// NewResolver creates a resolver over the given mapping store.
func NewResolver(store service.MappingStore) *Resolver {
	return &Resolver{
		store:     store,
		threshold: FuzzyThreshold,
		now:       time.Now,
	}
}

// WithThreshold returns a copy of the resolver using a different fuzzy threshold.
func (r *Resolver) WithThreshold(threshold float64) *Resolver {
	clone := *r
	clone.threshold = threshold
	return &clone
}

// FindMatch resolves rawName to an exact mapping, the closest fuzzy mapping, or nothing.
func (r *Resolver) FindMatch(ctx context.Context, rawName string) (Match, error) {
	normalized := similarity.Normalize(rawName)
	if normalized == "" {
		return Match{Type: MatchNone}, nil
	}

	exact, err := r.store.FindMappingByRawName(ctx, normalized)
	if err != nil {
		return Match{}, fmt.Errorf("failed to look up mapping for %q: %w", normalized, err)
	}
	if exact != nil {
		return Match{
			Type:       MatchExact,
			Mapping:    exact,
			Confidence: exact.Confidence,
		}, nil
	}

	mappings, err := r.store.FindAllMappings(ctx)
	if err != nil {
		return Match{}, fmt.Errorf("failed to load mappings: %w", err)
	}

	var best *model.MerchantMapping
	bestScore := 0.0
	for i := range mappings {
		score := similarity.Similarity(normalized, mappings[i].RawName)
		if score >= r.threshold && score > bestScore {
			best = &mappings[i]
			bestScore = score
		}
	}

	if best == nil {
		return Match{Type: MatchNone}, nil
	}

	return Match{
		Type:                 MatchFuzzy,
		Mapping:              best,
		Confidence:           bestScore,
		RequiresConfirmation: bestScore < AutoAcceptThreshold,
	}, nil
}

// ConfirmFuzzyMatch records that the user accepted suggested as the mapping for rawName.
// The new mapping inherits the suggested mapping's display name and category.
func (r *Resolver) ConfirmFuzzyMatch(ctx context.Context, rawName string, suggested model.MerchantMapping) (*model.MerchantMapping, error) {
	mapping := &model.MerchantMapping{
		RawName:     similarity.Normalize(rawName),
		DisplayName: suggested.DisplayName,
		CategoryID:  suggested.CategoryID,
		Confidence:  model.ConfirmedMappingConfidence,
		Source:      model.SourceConfirmed,
		LastUpdated: r.now(),
	}

	if err := r.store.InsertMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to save confirmed mapping: %w", err)
	}

	slog.Debug("Confirmed fuzzy merchant match",
		"raw_name", mapping.RawName,
		"matched", suggested.RawName,
		"category_id", mapping.CategoryID)

	return mapping, nil
}

// CreateMapping stores an explicit user mapping for rawName.
func (r *Resolver) CreateMapping(ctx context.Context, rawName, displayName string, categoryID int) (*model.MerchantMapping, error) {
	mapping := &model.MerchantMapping{
		RawName:     similarity.Normalize(rawName),
		DisplayName: displayName,
		CategoryID:  categoryID,
		Confidence:  model.ManualMappingConfidence,
		Source:      model.SourceManual,
		LastUpdated: r.now(),
	}

	if err := r.store.InsertMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}

	return mapping, nil
}

// RejectFuzzyMatch records that the user declined a suggested mapping. Nothing is persisted.
func (r *Resolver) RejectFuzzyMatch(_ context.Context, rawName string, suggested model.MerchantMapping) {
	slog.Debug("Rejected fuzzy merchant match",
		"raw_name", similarity.Normalize(rawName),
		"suggested", suggested.RawName)
}
