// Package forecast projects upcoming expenses from confirmed recurring rules and detected
// patterns, and flags subscriptions that started or stopped recently.
package forecast

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/service"
)

const (
	// ConfirmedConfidence is the confidence given to predictions backed by a confirmed rule.
	ConfirmedConfidence = 0.95
	// assumedConsistency stands in for interval consistency when scoring new subscriptions.
	assumedConsistency = 0.8
	// fallbackConfidence scores new subscriptions without a detectable frequency.
	fallbackConfidence = 0.6
)

// Options tunes the predictor's windows and matching.
type Options struct {
	Matcher         MerchantMatcher
	HistoryMonths   int // Trailing window searched for new subscriptions
	RecentMonths    int // Sub-window a new subscription must be confined to
	GracePeriodDays int // Tolerance before an expected payment counts as missed
}

// DefaultOptions returns the default predictor options.
func DefaultOptions() Options {
	return Options{
		Matcher:         ContainsMatcher{},
		HistoryMonths:   6,
		RecentMonths:    2,
		GracePeriodDays: 5,
	}
}

// Detector is the part of the pattern detector the predictor depends on.
type Detector interface {
	pattern.Detection
	pattern.Clusterer
}

// Predictor combines confirmed rules with detected patterns.
type Predictor struct {
	rules    service.RuleStore
	txns     service.TransactionStore
	detector Detector
	now      func() time.Time
	opts     Options
}

// NewPredictor creates a predictor. Zero option fields take their defaults.
func NewPredictor(rules service.RuleStore, txns service.TransactionStore, detector Detector, opts Options) *Predictor {
	defaults := DefaultOptions()
	if opts.Matcher == nil {
		opts.Matcher = defaults.Matcher
	}
	if opts.HistoryMonths <= 0 {
		opts.HistoryMonths = defaults.HistoryMonths
	}
	if opts.RecentMonths <= 0 || opts.RecentMonths >= opts.HistoryMonths {
		opts.RecentMonths = min(defaults.RecentMonths, opts.HistoryMonths-1)
	}
	if opts.GracePeriodDays < 0 {
		opts.GracePeriodDays = defaults.GracePeriodDays
	}
	return &Predictor{
		rules:    rules,
		txns:     txns,
		detector: detector,
		now:      time.Now,
		opts:     opts,
	}
}

// WithClock replaces the predictor's time source.
func (p *Predictor) WithClock(now func() time.Time) *Predictor {
	p.now = now
	return p
}

// NextMonth returns the calendar month after the one containing now.
func NextMonth(now time.Time) service.Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
	return service.Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// PredictNextMonthExpenses lists the expenses expected next calendar month, ordered by date.
// Detected patterns whose merchant already has an active rule are left out.
func (p *Predictor) PredictNextMonthExpenses(ctx context.Context) ([]model.PredictedExpense, error) {
	now := p.now()
	month := NextMonth(now)

	rules, err := p.rules.GetActiveRules(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}

	var predictions []model.PredictedExpense
	for _, rule := range rules {
		if !month.Contains(rule.NextExpected) {
			continue
		}
		predictions = append(predictions, model.PredictedExpense{
			Date:            rule.NextExpected,
			MerchantPattern: rule.MerchantPattern,
			DisplayName:     pattern.DisplayName(rule.MerchantPattern),
			Frequency:       rule.Frequency,
			Source:          model.PredictionConfirmed,
			Amount:          rule.ExpectedAmount,
			Confidence:      ConfirmedConfidence,
			CategoryID:      rule.CategoryID,
		})
	}

	suggestions, err := p.detector.DetectPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect patterns: %w", err)
	}
	for _, s := range suggestions {
		if !month.Contains(s.NextDate) || hasRule(rules, s.MerchantPattern) {
			continue
		}
		predictions = append(predictions, model.PredictedExpense{
			Date:            s.NextDate,
			MerchantPattern: s.MerchantPattern,
			DisplayName:     s.DisplayName,
			Frequency:       s.Frequency,
			Source:          model.PredictionDetected,
			Amount:          s.AverageAmount,
			Confidence:      s.Confidence,
			CategoryID:      s.CategoryID,
		})
	}

	slices.SortStableFunc(predictions, func(a, b model.PredictedExpense) int {
		return a.Date.Compare(b.Date)
	})
	return predictions, nil
}

func hasRule(rules []model.RecurringRule, merchantPattern string) bool {
	for _, rule := range rules {
		if strings.EqualFold(rule.MerchantPattern, merchantPattern) {
			return true
		}
	}
	return false
}

// IdentifyNewSubscriptions reports merchants charged at least twice in the recent window and
// never earlier in the history window.
func (p *Predictor) IdentifyNewSubscriptions(ctx context.Context) ([]model.NewSubscription, error) {
	now := p.now()
	history := service.LastMonths(now, p.opts.HistoryMonths)
	recentStart := now.AddDate(0, -p.opts.RecentMonths, 0)

	all, err := p.txns.GetAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var windowed []model.Transaction
	for _, txn := range all {
		if history.Contains(txn.Date) {
			windowed = append(windowed, txn)
		}
	}

	var found []model.NewSubscription
	for _, cluster := range p.detector.GroupTransactionsByMerchant(windowed) {
		var dates []time.Time
		var amounts []float64
		older := 0
		for _, txn := range cluster.Transactions {
			if txn.Date.Before(recentStart) {
				older++
				continue
			}
			dates = append(dates, txn.Date)
			amounts = append(amounts, txn.AmountFloat())
		}
		if older > 0 || len(dates) < 2 {
			continue
		}

		sub := model.NewSubscription{
			FirstSeen:       slices.MinFunc(dates, func(a, b time.Time) int { return a.Compare(b) }),
			MerchantPattern: cluster.Key,
			DisplayName:     pattern.DisplayName(cluster.Key),
			AverageAmount:   average(amounts),
			Occurrences:     len(dates),
			Confidence:      fallbackConfidence,
		}
		if freq, ok := pattern.DetectFrequency(dates); ok {
			sub.Frequency = &freq
			sub.Confidence = pattern.CalculateConfidence(len(dates), pattern.AmountVariance(amounts), assumedConsistency)
		}
		found = append(found, sub)
	}

	slices.SortStableFunc(found, func(a, b model.NewSubscription) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return found, nil
}

// FlagDormantSubscriptions reports active rules whose payments stopped appearing.
func (p *Predictor) FlagDormantSubscriptions(ctx context.Context) ([]model.DormantSubscription, error) {
	now := p.now()

	rules, err := p.rules.GetActiveRules(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}
	txns, err := p.txns.GetAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var dormant []model.DormantSubscription
	for _, rule := range rules {
		last := p.lastMatch(rule, txns)
		if last == nil {
			dormant = append(dormant, model.DormantSubscription{
				Rule:   rule,
				Status: model.DormantInactive,
			})
			continue
		}

		days := daysBetween(*last, now)
		missed := MissedPayments(days, p.opts.GracePeriodDays, rule.Frequency)

		var status model.DormantStatus
		switch {
		case missed >= 2:
			status = model.DormantPossiblyCancelled
		case missed == 1:
			status = model.DormantPaymentIssue
		default:
			continue
		}

		dormant = append(dormant, model.DormantSubscription{
			Rule:              rule,
			LastSeen:          last,
			Status:            status,
			DaysSinceLastSeen: days,
			MissedPayments:    missed,
		})
	}

	slog.Debug("Checked recurring rules for dormancy", "rules", len(rules), "flagged", len(dormant))
	return dormant, nil
}

// MissedPayments returns how many whole periods have passed beyond the grace period.
func MissedPayments(daysSinceLastSeen, graceDays int, freq model.Frequency) int {
	interval := freq.Days()
	if interval == 0 {
		return 0
	}
	return max(0, daysSinceLastSeen-graceDays) / interval
}

// lastMatch returns the date of the latest debit matching the rule, or nil when none does.
func (p *Predictor) lastMatch(rule model.RecurringRule, txns []model.Transaction) *time.Time {
	var last *time.Time
	for i := range txns {
		txn := &txns[i]
		if !txn.IsDebit() || !p.opts.Matcher.Matches(rule.MerchantPattern, txn.Merchant) {
			continue
		}
		if last == nil || txn.Date.After(*last) {
			last = &txn.Date
		}
	}
	return last
}

// RecurringHealthSummary aggregates predictions, new subscriptions and dormant rules.
func (p *Predictor) RecurringHealthSummary(ctx context.Context) (model.RecurringHealth, error) {
	var health model.RecurringHealth

	predictions, err := p.PredictNextMonthExpenses(ctx)
	if err != nil {
		return health, err
	}
	for _, pred := range predictions {
		health.PredictedTotal += pred.Amount
		switch pred.Source {
		case model.PredictionConfirmed:
			health.ConfirmedTotal += pred.Amount
			health.ConfirmedCount++
		case model.PredictionDetected:
			health.DetectedTotal += pred.Amount
			health.DetectedCount++
		}
	}

	fresh, err := p.IdentifyNewSubscriptions(ctx)
	if err != nil {
		return health, err
	}
	health.NewSubscriptionCount = len(fresh)

	dormant, err := p.FlagDormantSubscriptions(ctx)
	if err != nil {
		return health, err
	}
	health.DormantCount = len(dormant)
	for _, d := range dormant {
		if d.Status == model.DormantPossiblyCancelled {
			health.PotentialSavings += d.Rule.ExpectedAmount
		}
	}

	return health, nil
}

// daysBetween counts calendar days from one date to another in to's location, so a
// daylight saving change in between does not lose a day.
func daysBetween(from, to time.Time) int {
	from = from.In(to.Location())
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
