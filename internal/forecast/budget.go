package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/service"
)

// DefaultBudgetMonths is the trailing window averaged for variable spending.
const DefaultBudgetMonths = 3

// BudgetForecaster projects next month's spending from recurring rules plus the average of
// everything else.
type BudgetForecaster struct {
	rules   service.RuleStore
	txns    service.TransactionStore
	matcher MerchantMatcher
	now     func() time.Time
}

// NewBudgetForecaster creates a forecaster. A nil matcher selects ContainsMatcher.
func NewBudgetForecaster(rules service.RuleStore, txns service.TransactionStore, matcher MerchantMatcher) *BudgetForecaster {
	if matcher == nil {
		matcher = ContainsMatcher{}
	}
	return &BudgetForecaster{
		rules:   rules,
		txns:    txns,
		matcher: matcher,
		now:     time.Now,
	}
}

// WithClock replaces the forecaster's time source.
func (f *BudgetForecaster) WithClock(now func() time.Time) *BudgetForecaster {
	f.now = now
	return f
}

// Forecast returns the budget for next calendar month. Variable spending is averaged over the
// complete months of the trailing window that have any non-recurring debits.
func (f *BudgetForecaster) Forecast(ctx context.Context, months int) (model.BudgetForecast, error) {
	if months <= 0 {
		months = DefaultBudgetMonths
	}
	now := f.now()
	next := NextMonth(now)
	thisMonth := next.Start.AddDate(0, -1, 0)
	window := service.Period{Start: thisMonth.AddDate(0, -months, 0), End: thisMonth}

	forecast := model.BudgetForecast{
		Month:      next.Start,
		ByCategory: make(map[int]float64),
	}

	rules, err := f.rules.GetActiveRules(ctx, now)
	if err != nil {
		return forecast, fmt.Errorf("failed to load active rules: %w", err)
	}
	for _, rule := range rules {
		amount := rule.ExpectedAmount * float64(occurrencesIn(rule, next))
		if amount == 0 {
			continue
		}
		forecast.RecurringTotal += amount
		forecast.ByCategory[rule.CategoryID] += amount
	}

	txns, err := f.txns.GetAllTransactions(ctx)
	if err != nil {
		return forecast, fmt.Errorf("failed to load transactions: %w", err)
	}

	variable := make(map[int]float64)
	seenMonths := make(map[time.Time]struct{})
	for _, txn := range txns {
		if !txn.IsDebit() || !window.Contains(txn.Date) || f.recurring(txn, rules) {
			continue
		}
		variable[txn.CategoryID] += txn.AmountFloat()
		seenMonths[time.Date(txn.Date.Year(), txn.Date.Month(), 1, 0, 0, 0, 0, txn.Date.Location())] = struct{}{}
	}

	forecast.MonthsOfData = len(seenMonths)
	forecast.Confidence = confidenceTier(forecast.MonthsOfData)
	if forecast.MonthsOfData > 0 {
		for category, total := range variable {
			avg := total / float64(forecast.MonthsOfData)
			forecast.VariableTotal += avg
			forecast.ByCategory[category] += avg
		}
	}

	forecast.Total = forecast.RecurringTotal + forecast.VariableTotal
	return forecast, nil
}

func (f *BudgetForecaster) recurring(txn model.Transaction, rules []model.RecurringRule) bool {
	for _, rule := range rules {
		if f.matcher.Matches(rule.MerchantPattern, txn.Merchant) {
			return true
		}
	}
	return false
}

// occurrencesIn counts how often a rule is expected to charge within the period. Every
// frequency steps forward from the rule's next expected date the same way, so a date that has
// already passed is rolled forward to its next occurrence instead of counting by itself.
// Monthly and yearly rules keep the day of their next expected date.
func occurrencesIn(rule model.RecurringRule, period service.Period) int {
	if !rule.Frequency.Valid() || rule.NextExpected.IsZero() {
		return 0
	}

	day := rule.NextExpected.Day()
	count := 0
	for d := rule.NextExpected; d.Before(period.End); d = pattern.PredictNextOccurrence(d, rule.Frequency, day) {
		if !d.Before(period.Start) {
			count++
		}
	}
	return count
}

func confidenceTier(monthsOfData int) model.ForecastConfidence {
	switch {
	case monthsOfData >= 3:
		return model.ForecastHigh
	case monthsOfData == 2:
		return model.ForecastMedium
	case monthsOfData == 1:
		return model.ForecastLow
	default:
		return model.ForecastInsufficient
	}
}
