package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/service"
	"github.com/Veraticus/spice-sms/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categorized(txn model.Transaction, categoryID int) model.Transaction {
	txn.CategoryID = categoryID
	return txn
}

func TestBudgetForecaster(t *testing.T) {
	db := testutil.SetupTestDB(t, testutil.BasicCategories...)
	ctx := context.Background()
	food := db.MustCategoryID(testutil.CategoryFoodDining)
	subs := db.MustCategoryID(testutil.CategorySubscriptions)
	shopping := db.MustCategoryID(testutil.CategoryShopping)

	for _, rule := range []model.RecurringRule{
		{MerchantPattern: "SPOTIFY", Frequency: model.FrequencyMonthly, ExpectedAmount: 500, NextExpected: testutil.Date(2025, 7, 21), CategoryID: subs, IsActive: true},
		{MerchantPattern: "MILKMAN", Frequency: model.FrequencyWeekly, ExpectedAmount: 60, NextExpected: testutil.Date(2025, 7, 2), CategoryID: food, IsActive: true},
		{MerchantPattern: "LIC PREMIUM", Frequency: model.FrequencyYearly, ExpectedAmount: 12000, NextExpected: testutil.Date(2025, 9, 1), IsActive: true},
	} {
		_, err := db.Storage.InsertRule(ctx, &rule)
		require.NoError(t, err)
	}

	seed(t, db, []model.Transaction{
		categorized(testutil.Debit("BARBEQUE NATION", 3000, testutil.Date(2025, 3, 8)), food),
		categorized(testutil.Debit("SWIGGY", 1000, testutil.Date(2025, 4, 12)), food),
		categorized(testutil.Debit("MYNTRA", 600, testutil.Date(2025, 5, 20)), shopping),
		categorized(testutil.Debit("SPOTIFY", 500, testutil.Date(2025, 4, 21)), subs),
		categorized(testutil.Debit("SWIGGY", 800, testutil.Date(2025, 6, 10)), food),
		categorized(testutil.Debit("SWIGGY", 800, testutil.Date(2024, 12, 10)), food),
		testutil.Credit("SALARY", 90000, testutil.Date(2025, 5, 1)),
	})

	forecast, err := NewBudgetForecaster(db.Storage, db.Storage, nil).WithClock(clock).Forecast(ctx, 3)
	require.NoError(t, err)

	assert.True(t, testutil.Date(2025, 7, 1).Equal(forecast.Month))
	assert.Equal(t, 3, forecast.MonthsOfData)
	assert.Equal(t, model.ForecastHigh, forecast.Confidence)
	assert.InDelta(t, 500+5*60, forecast.RecurringTotal, 1e-9)
	assert.InDelta(t, 4600.0/3, forecast.VariableTotal, 1e-9)
	assert.InDelta(t, 800+4600.0/3, forecast.Total, 1e-9)
	assert.InDelta(t, 300+4000.0/3, forecast.ByCategory[food], 1e-9)
	assert.InDelta(t, 500, forecast.ByCategory[subs], 1e-9)
	assert.InDelta(t, 200, forecast.ByCategory[shopping], 1e-9)
}

func TestBudgetForecaster_Tiers(t *testing.T) {
	tests := []struct {
		name   string
		months []int
		want   model.ForecastConfidence
	}{
		{name: "no history", want: model.ForecastInsufficient},
		{name: "one month", months: []int{5}, want: model.ForecastLow},
		{name: "two months", months: []int{4, 5}, want: model.ForecastMedium},
		{name: "three months", months: []int{3, 4, 5}, want: model.ForecastHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			var txns []model.Transaction
			for _, m := range tt.months {
				txns = append(txns, testutil.Debit("SWIGGY", 100, testutil.Date(2025, time.Month(m), 10)))
			}
			seed(t, db, txns)

			forecast, err := NewBudgetForecaster(db.Storage, db.Storage, nil).WithClock(clock).Forecast(context.Background(), 3)
			require.NoError(t, err)
			assert.Equal(t, tt.want, forecast.Confidence)
			assert.Equal(t, len(tt.months), forecast.MonthsOfData)
		})
	}
}

func TestOccurrencesIn(t *testing.T) {
	july := service.Period{Start: testutil.Date(2025, 7, 1), End: testutil.Date(2025, 8, 1)}

	tests := []struct {
		name string
		freq model.Frequency
		next time.Time
		want int
	}{
		{name: "monthly due this month", freq: model.FrequencyMonthly, next: testutil.Date(2025, 7, 21), want: 1},
		{name: "monthly due later", freq: model.FrequencyMonthly, next: testutil.Date(2025, 8, 21), want: 0},
		{name: "stale monthly rolls forward", freq: model.FrequencyMonthly, next: testutil.Date(2025, 2, 21), want: 1},
		{name: "stale monthly on the 31st", freq: model.FrequencyMonthly, next: testutil.Date(2025, 1, 31), want: 1},
		{name: "weekly", freq: model.FrequencyWeekly, next: testutil.Date(2025, 7, 2), want: 5},
		{name: "stale weekly rolls forward", freq: model.FrequencyWeekly, next: testutil.Date(2025, 6, 4), want: 5},
		{name: "yearly due this month", freq: model.FrequencyYearly, next: testutil.Date(2025, 7, 15), want: 1},
		{name: "stale yearly due this month", freq: model.FrequencyYearly, next: testutil.Date(2023, 7, 15), want: 1},
		{name: "stale yearly due another month", freq: model.FrequencyYearly, next: testutil.Date(2023, 9, 1), want: 0},
		{name: "unknown frequency", freq: model.Frequency("DAILY"), next: testutil.Date(2025, 7, 2), want: 0},
		{name: "no next date", freq: model.FrequencyMonthly, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := model.RecurringRule{Frequency: tt.freq, NextExpected: tt.next}
			assert.Equal(t, tt.want, occurrencesIn(rule, july))
		})
	}
}

func TestBudgetForecaster_StaleRules(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	for _, rule := range []model.RecurringRule{
		{MerchantPattern: "NETFLIX", Frequency: model.FrequencyMonthly, ExpectedAmount: 649, NextExpected: testutil.Date(2025, 1, 5), IsActive: true},
		{MerchantPattern: "AMAZON PRIME", Frequency: model.FrequencyYearly, ExpectedAmount: 1499, NextExpected: testutil.Date(2024, 7, 10), IsActive: true},
		{MerchantPattern: "DOMAIN RENEWAL", Frequency: model.FrequencyYearly, ExpectedAmount: 900, NextExpected: testutil.Date(2024, 3, 10), IsActive: true},
	} {
		_, err := db.Storage.InsertRule(ctx, &rule)
		require.NoError(t, err)
	}

	forecast, err := NewBudgetForecaster(db.Storage, db.Storage, nil).WithClock(clock).Forecast(ctx, 3)
	require.NoError(t, err)
	assert.InDelta(t, 649+1499, forecast.RecurringTotal, 1e-9)
}
