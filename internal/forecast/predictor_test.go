package forecast

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/pattern"
	"github.com/Veraticus/spice-sms/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = testutil.Date(2025, 6, 30)

func clock() time.Time { return testNow }

func seed(t *testing.T, db *testutil.TestDB, batches ...[]model.Transaction) {
	t.Helper()
	for _, batch := range batches {
		_, err := db.Storage.SaveTransactions(context.Background(), batch)
		require.NoError(t, err)
	}
}

func addRule(t *testing.T, db *testutil.TestDB, merchant string, freq model.Frequency, amount float64, next time.Time) {
	t.Helper()
	_, err := db.Storage.InsertRule(context.Background(), &model.RecurringRule{
		MerchantPattern: merchant,
		Frequency:       freq,
		ExpectedAmount:  amount,
		NextExpected:    next,
		IsActive:        true,
	})
	require.NoError(t, err)
}

func newTestPredictor(db *testutil.TestDB, opts Options) *Predictor {
	detector := pattern.NewDetector(db.Storage, db.Storage, db.Storage, pattern.DefaultConfig()).WithClock(clock)
	return NewPredictor(db.Storage, db.Storage, detector, opts).WithClock(clock)
}

// stubDetector returns fixed suggestions and clusters like the real detector.
type stubDetector struct {
	suggestions []model.PatternSuggestion
}

func (s stubDetector) DetectPatterns(context.Context) ([]model.PatternSuggestion, error) {
	return s.suggestions, nil
}

func (stubDetector) GroupTransactionsByMerchant(txns []model.Transaction) []pattern.Cluster {
	return pattern.NewMerchantClusterer(pattern.DefaultClusterThreshold).GroupTransactionsByMerchant(txns)
}

func TestMissedPayments(t *testing.T) {
	tests := []struct {
		name string
		days int
		freq model.Frequency
		want int
	}{
		{name: "seventy days monthly", days: 70, freq: model.FrequencyMonthly, want: 2},
		{name: "forty days monthly", days: 40, freq: model.FrequencyMonthly, want: 1},
		{name: "within one period", days: 30, freq: model.FrequencyMonthly, want: 0},
		{name: "within grace", days: 3, freq: model.FrequencyMonthly, want: 0},
		{name: "weekly", days: 20, freq: model.FrequencyWeekly, want: 2},
		{name: "yearly", days: 400, freq: model.FrequencyYearly, want: 1},
		{name: "unknown frequency", days: 400, freq: "DAILY", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissedPayments(tt.days, 5, tt.freq))
		})
	}
}

func TestNextMonth(t *testing.T) {
	p := NextMonth(testutil.Date(2025, 12, 31))
	assert.True(t, testutil.Date(2026, 1, 1).Equal(p.Start))
	assert.True(t, testutil.Date(2026, 2, 1).Equal(p.End))
}

func TestFlagDormantSubscriptions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	addRule(t, db, "SPOTIFY", model.FrequencyMonthly, 500, testutil.Date(2025, 5, 21))
	addRule(t, db, "GYM", model.FrequencyMonthly, 1500, testutil.Date(2025, 6, 20))
	addRule(t, db, "NETFLIX", model.FrequencyMonthly, 649, testutil.Date(2025, 7, 20))
	addRule(t, db, "HOTSTAR", model.FrequencyYearly, 899, testutil.Date(2025, 9, 1))

	seed(t, db, []model.Transaction{
		testutil.Debit("SPOTIFY INDIA PVT", 500, testNow.AddDate(0, 0, -100)),
		testutil.Debit("SPOTIFY INDIA PVT", 500, testNow.AddDate(0, 0, -70)),
		testutil.Debit("CULT GYM", 1500, testNow.AddDate(0, 0, -40)),
		testutil.Debit("NETFLIX", 649, testNow.AddDate(0, 0, -10)),
		testutil.Credit("HOTSTAR", 899, testNow.AddDate(0, 0, -10)),
	})

	dormant, err := newTestPredictor(db, DefaultOptions()).FlagDormantSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, dormant, 3)

	assert.Equal(t, "SPOTIFY", dormant[0].Rule.MerchantPattern)
	assert.Equal(t, model.DormantPossiblyCancelled, dormant[0].Status)
	assert.Equal(t, 70, dormant[0].DaysSinceLastSeen)
	assert.Equal(t, 2, dormant[0].MissedPayments)
	require.NotNil(t, dormant[0].LastSeen)
	assert.True(t, testNow.AddDate(0, 0, -70).Equal(*dormant[0].LastSeen))

	assert.Equal(t, "GYM", dormant[1].Rule.MerchantPattern)
	assert.Equal(t, model.DormantPaymentIssue, dormant[1].Status)
	assert.Equal(t, 1, dormant[1].MissedPayments)

	assert.Equal(t, "HOTSTAR", dormant[2].Rule.MerchantPattern)
	assert.Equal(t, model.DormantInactive, dormant[2].Status, "credits never count as payments")
	assert.Nil(t, dormant[2].LastSeen)
}

func TestDaysBetween(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start := time.Date(2025, 1, 20, 0, 0, 0, 0, newYork)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{name: "same day", from: start, to: start.Add(20 * time.Hour), want: 0},
		{name: "across spring forward", from: start, to: start.AddDate(0, 0, 65), want: 65},
		{name: "across fall back", from: time.Date(2025, 10, 1, 0, 0, 0, 0, newYork), to: time.Date(2025, 12, 5, 0, 0, 0, 0, newYork), want: 65},
		{name: "late evening to early morning", from: time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC), to: time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC), want: 2},
		{name: "backwards", from: start.AddDate(0, 0, 3), to: start, want: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, daysBetween(tt.from, tt.to))
		})
	}

	days := daysBetween(start, start.AddDate(0, 0, 65))
	assert.Equal(t, 2, MissedPayments(days, DefaultOptions().GracePeriodDays, model.FrequencyMonthly))
}

func TestFlagDormantSubscriptions_SimilarityMatcher(t *testing.T) {
	db := testutil.SetupTestDB(t)

	addRule(t, db, "SPOTIFY", model.FrequencyMonthly, 500, testutil.Date(2025, 7, 21))
	seed(t, db, []model.Transaction{
		testutil.Debit("SPOTIFY INDIA PVT", 500, testNow.AddDate(0, 0, -10)),
	})

	opts := DefaultOptions()
	opts.Matcher = SimilarityMatcher{Threshold: 0.8}
	dormant, err := newTestPredictor(db, opts).FlagDormantSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, dormant, 1)
	assert.Equal(t, model.DormantInactive, dormant[0].Status)
}

func TestIdentifyNewSubscriptions(t *testing.T) {
	db := testutil.SetupTestDB(t)

	seed(t, db,
		[]model.Transaction{
			testutil.Debit("CURSOR AI", 20, testutil.Date(2025, 5, 10)),
			testutil.Debit("CURSOR AI", 20, testutil.Date(2025, 6, 10)),
			testutil.Debit("AMAZON", 300, testutil.Date(2025, 6, 1)),
			testutil.Debit("AMAZON", 500, testutil.Date(2025, 6, 15)),
			testutil.Debit("ZOMATO", 450, testutil.Date(2025, 6, 20)),
			testutil.Debit("DROPBOX", 999, testutil.Date(2024, 6, 5)),
			testutil.Debit("DROPBOX", 999, testutil.Date(2025, 5, 5)),
			testutil.Debit("DROPBOX", 999, testutil.Date(2025, 6, 5)),
		},
		testutil.MonthlySeries("NETFLIX", 649, testutil.Date(2025, 1, 15), 6),
	)

	found, err := newTestPredictor(db, DefaultOptions()).IdentifyNewSubscriptions(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 3)

	byMerchant := make(map[string]model.NewSubscription)
	for _, sub := range found {
		byMerchant[sub.MerchantPattern] = sub
	}
	assert.NotContains(t, byMerchant, "NETFLIX", "spread across the whole window")
	assert.NotContains(t, byMerchant, "ZOMATO", "only one recent charge")

	cursor := byMerchant["CURSOR AI"]
	require.NotNil(t, cursor.Frequency)
	assert.Equal(t, model.FrequencyMonthly, *cursor.Frequency)
	assert.Equal(t, 2, cursor.Occurrences)
	assert.InDelta(t, pattern.CalculateConfidence(2, 0, 0.8), cursor.Confidence, 1e-9)
	assert.True(t, testutil.Date(2025, 5, 10).Equal(cursor.FirstSeen))
	assert.Equal(t, "Cursor Ai", cursor.DisplayName)

	amazon := byMerchant["AMAZON"]
	assert.Nil(t, amazon.Frequency)
	assert.InDelta(t, 0.6, amazon.Confidence, 1e-9)
	assert.InDelta(t, 400, amazon.AverageAmount, 1e-9)

	_, ok := byMerchant["DROPBOX"]
	assert.True(t, ok, "charges before the history window do not count")

	for i := 1; i < len(found); i++ {
		assert.GreaterOrEqual(t, found[i-1].Confidence, found[i].Confidence)
	}
}

func TestPredictNextMonthExpenses(t *testing.T) {
	db := testutil.SetupTestDB(t)

	addRule(t, db, "SPOTIFY", model.FrequencyMonthly, 119, testutil.Date(2025, 7, 3))
	addRule(t, db, "GYM", model.FrequencyMonthly, 1500, testutil.Date(2025, 8, 1))
	seed(t, db,
		testutil.MonthlySeries("NETFLIX", 649, testutil.Date(2025, 3, 15), 4),
		testutil.MonthlySeries("SPOTIFY", 119, testutil.Date(2025, 3, 3), 4),
	)

	predictions, err := newTestPredictor(db, DefaultOptions()).PredictNextMonthExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, predictions, 2)

	assert.Equal(t, "SPOTIFY", predictions[0].MerchantPattern)
	assert.Equal(t, model.PredictionConfirmed, predictions[0].Source)
	assert.InDelta(t, ConfirmedConfidence, predictions[0].Confidence, 1e-9)
	assert.True(t, testutil.Date(2025, 7, 3).Equal(predictions[0].Date))

	assert.Equal(t, "NETFLIX", predictions[1].MerchantPattern)
	assert.Equal(t, model.PredictionDetected, predictions[1].Source)
	assert.True(t, testutil.Date(2025, 7, 15).Equal(predictions[1].Date))
	assert.InDelta(t, 649, predictions[1].Amount, 1e-9)
}

func TestPredictNextMonthExpenses_SkipsDetectedWithRule(t *testing.T) {
	db := testutil.SetupTestDB(t)
	addRule(t, db, "SPOTIFY", model.FrequencyMonthly, 119, testutil.Date(2025, 7, 3))

	detector := stubDetector{suggestions: []model.PatternSuggestion{
		{MerchantPattern: "spotify", NextDate: testutil.Date(2025, 7, 3), AverageAmount: 119, Confidence: 0.9},
		{MerchantPattern: "AIRTEL", NextDate: testutil.Date(2025, 7, 1), AverageAmount: 399, Confidence: 0.9},
		{MerchantPattern: "JIO", NextDate: testutil.Date(2025, 8, 1), AverageAmount: 299, Confidence: 0.9},
	}}
	predictor := NewPredictor(db.Storage, db.Storage, detector, DefaultOptions()).WithClock(clock)

	predictions, err := predictor.PredictNextMonthExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, predictions, 2)
	assert.Equal(t, "AIRTEL", predictions[0].MerchantPattern)
	assert.Equal(t, "SPOTIFY", predictions[1].MerchantPattern)
	assert.Equal(t, model.PredictionConfirmed, predictions[1].Source)
}

func TestRecurringHealthSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)

	addRule(t, db, "SPOTIFY", model.FrequencyMonthly, 500, testutil.Date(2025, 7, 21))
	seed(t, db,
		[]model.Transaction{
			testutil.Debit("SPOTIFY", 500, testNow.AddDate(0, 0, -70)),
			testutil.Debit("CURSOR AI", 20, testutil.Date(2025, 5, 10)),
			testutil.Debit("CURSOR AI", 20, testutil.Date(2025, 6, 10)),
		},
		testutil.MonthlySeries("NETFLIX", 649, testutil.Date(2025, 3, 15), 4),
	)

	health, err := newTestPredictor(db, DefaultOptions()).RecurringHealthSummary(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 1169, health.PredictedTotal, 1e-9)
	assert.InDelta(t, 500, health.ConfirmedTotal, 1e-9)
	assert.InDelta(t, 669, health.DetectedTotal, 1e-9)
	assert.Equal(t, 1, health.ConfirmedCount)
	assert.Equal(t, 2, health.DetectedCount)
	assert.Equal(t, 1, health.NewSubscriptionCount)
	assert.Equal(t, 1, health.DormantCount)
	assert.InDelta(t, 500, health.PotentialSavings, 1e-9)
}
