package pattern

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/merchant"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/similarity"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultMinConfidence is the lowest confidence a detected pattern may have.
const DefaultMinConfidence = 0.7

// minOccurrences is the fewest transactions a pattern can be built from.
const minOccurrences = 2

// Config holds detector tuning.
type Config struct {
	ClusterThreshold float64
	MinConfidence    float64
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		ClusterThreshold: DefaultClusterThreshold,
		MinConfidence:    DefaultMinConfidence,
	}
}

// Result describes one detection pass.
type Result struct {
	Suggestions []model.PatternSuggestion
	Clusters    int
	Suppressed  int // Clusters skipped because an active rule already covers them
	Errors      int
}

// Detector finds recurring expenses in transaction history.
type Detector struct {
	txns        service.TransactionStore
	rules       service.RuleStore
	suggestions service.SuggestionStore
	resolver    *merchant.Resolver
	clusterer   *MerchantClusterer
	now         func() time.Time
	config      Config
}

// NewDetector creates a detector over the given stores.
func NewDetector(txns service.TransactionStore, rules service.RuleStore, suggestions service.SuggestionStore, config Config) *Detector {
	if config.ClusterThreshold <= 0 {
		config.ClusterThreshold = DefaultClusterThreshold
	}
	if config.MinConfidence <= 0 {
		config.MinConfidence = DefaultMinConfidence
	}
	return &Detector{
		txns:        txns,
		rules:       rules,
		suggestions: suggestions,
		clusterer:   NewMerchantClusterer(config.ClusterThreshold),
		now:         time.Now,
		config:      config,
	}
}

// WithResolver makes the detector use stored merchant mappings for display names and categories.
func (d *Detector) WithResolver(resolver *merchant.Resolver) *Detector {
	d.resolver = resolver
	return d
}

// WithClock replaces the detector's time source.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// GroupTransactionsByMerchant clusters debit transactions by canonical merchant.
func (d *Detector) GroupTransactionsByMerchant(txns []model.Transaction) []Cluster {
	return d.clusterer.GroupTransactionsByMerchant(txns)
}

// DetectPatterns returns the recurring patterns found in the full transaction history,
// highest confidence first.
func (d *Detector) DetectPatterns(ctx context.Context) ([]model.PatternSuggestion, error) {
	result, err := d.Detect(ctx)
	if err != nil {
		return nil, err
	}
	return result.Suggestions, nil
}

// Detect runs a detection pass and reports what happened to every cluster.
// A failure while analyzing one cluster is logged and counted without stopping the pass.
func (d *Detector) Detect(ctx context.Context) (Result, error) {
	txns, err := d.txns.GetAllTransactions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load transactions: %w", err)
	}

	rules, err := d.rules.GetActiveRules(ctx, d.now())
	if err != nil {
		return Result{}, fmt.Errorf("failed to load active rules: %w", err)
	}

	clusters := d.GroupTransactionsByMerchant(txns)
	result := Result{Clusters: len(clusters)}

	for _, cluster := range clusters {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if d.coveredByRule(cluster.Key, rules) {
			result.Suppressed++
			continue
		}

		suggestion, ok, err := d.analyzeSafely(ctx, cluster)
		if err != nil {
			result.Errors++
			slog.Warn("Failed to analyze merchant cluster", "merchant", cluster.Key, "error", err)
			continue
		}
		if ok {
			result.Suggestions = append(result.Suggestions, suggestion)
		}
	}

	slices.SortStableFunc(result.Suggestions, func(a, b model.PatternSuggestion) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})

	slog.Info("Pattern detection complete",
		"transactions", len(txns),
		"clusters", result.Clusters,
		"suggestions", len(result.Suggestions),
		"suppressed", result.Suppressed,
		"errors", result.Errors)

	return result, nil
}

// coveredByRule reports whether an active rule already describes the cluster.
func (d *Detector) coveredByRule(key string, rules []model.RecurringRule) bool {
	for _, rule := range rules {
		if similarity.IsSimilar(key, rule.MerchantPattern, d.config.ClusterThreshold) {
			return true
		}
	}
	return false
}

// analyzeSafely turns a panic inside cluster analysis into an error.
func (d *Detector) analyzeSafely(ctx context.Context, cluster Cluster) (s model.PatternSuggestion, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic analyzing %q: %v", cluster.Key, r)
		}
	}()
	return d.analyze(ctx, cluster)
}

// analyze builds a suggestion for one cluster, or reports false when the cluster is not periodic
// or not confident enough.
func (d *Detector) analyze(ctx context.Context, cluster Cluster) (model.PatternSuggestion, bool, error) {
	if len(cluster.Transactions) < minOccurrences {
		return model.PatternSuggestion{}, false, nil
	}

	dates := make([]time.Time, len(cluster.Transactions))
	amounts := make([]float64, len(cluster.Transactions))
	for i, txn := range cluster.Transactions {
		dates[i] = txn.Date
		amounts[i] = txn.AmountFloat()
	}

	freq, ok := DetectFrequency(dates)
	if !ok {
		return model.PatternSuggestion{}, false, nil
	}

	variance := AmountVariance(amounts)
	consistency := IntervalConsistency(dates, freq)
	confidence := CalculateConfidence(len(dates), variance, consistency)
	if confidence < d.config.MinConfidence {
		slog.Debug("Pattern below confidence threshold",
			"merchant", cluster.Key,
			"frequency", freq,
			"confidence", confidence)
		return model.PatternSuggestion{}, false, nil
	}

	dayOfPeriod := TypicalDayOfPeriod(dates, freq)
	last := slices.MaxFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	suggestion := model.PatternSuggestion{
		MerchantPattern: cluster.Key,
		DisplayName:     DisplayName(cluster.Key),
		AverageAmount:   mean(amounts),
		Frequency:       freq,
		DayOfPeriod:     dayOfPeriod,
		Occurrences:     len(dates),
		Confidence:      confidence,
		NextDate:        PredictNextOccurrence(last, freq, dayOfPeriod),
		CategoryID:      dominantCategory(cluster.Transactions),
	}

	if d.resolver != nil {
		match, err := d.resolver.FindMatch(ctx, cluster.Key)
		if err != nil {
			return model.PatternSuggestion{}, false, err
		}
		if match.Type == merchant.MatchExact {
			if match.Mapping.DisplayName != "" {
				suggestion.DisplayName = match.Mapping.DisplayName
			}
			if suggestion.CategoryID == 0 {
				suggestion.CategoryID = match.Mapping.CategoryID
			}
		}
	}

	return suggestion, true, nil
}

// DisplayName turns a normalized merchant key into a readable name.
func DisplayName(key string) string {
	return cases.Title(language.English).String(strings.ToLower(key))
}

// dominantCategory returns the most common non-zero category, preferring the earliest on ties.
func dominantCategory(txns []model.Transaction) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, txn := range txns {
		if txn.CategoryID == 0 {
			continue
		}
		counts[txn.CategoryID]++
		if counts[txn.CategoryID] > bestCount {
			best, bestCount = txn.CategoryID, counts[txn.CategoryID]
		}
	}
	return best
}

// SaveSuggestions stores new suggestions and returns how many were created. Duplicates and
// previously dismissed merchants are skipped by the store.
func (d *Detector) SaveSuggestions(ctx context.Context, suggestions []model.PatternSuggestion) (int, error) {
	created := 0
	var errs []error

	for _, s := range suggestions {
		saved, err := d.suggestions.CreateFromDetection(ctx, s)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.MerchantPattern, err))
			continue
		}
		if saved != nil {
			created++
		}
	}

	if len(errs) > 0 {
		return created, fmt.Errorf("failed to save %d suggestions: %w", len(errs), errors.Join(errs...))
	}
	return created, nil
}

// ConfirmPattern turns a stored suggestion into a recurring rule and returns the rule id.
func (d *Detector) ConfirmPattern(ctx context.Context, suggestionID int64) (int64, error) {
	ruleID, err := d.suggestions.ConfirmSuggestion(ctx, suggestionID)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm suggestion %d: %w", suggestionID, err)
	}
	slog.Info("Confirmed recurring pattern", "suggestion_id", suggestionID, "rule_id", ruleID)
	return ruleID, nil
}

// DismissPattern marks a stored suggestion as dismissed so it is not suggested again.
func (d *Detector) DismissPattern(ctx context.Context, suggestionID int64) error {
	if err := d.suggestions.DismissSuggestion(ctx, suggestionID); err != nil {
		return fmt.Errorf("failed to dismiss suggestion %d: %w", suggestionID, err)
	}
	return nil
}
