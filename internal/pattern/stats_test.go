package pattern

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestDetectFrequency(t *testing.T) {
	tests := []struct {
		name   string
		dates  []time.Time
		want   model.Frequency
		wantOK bool
	}{
		{
			name:   "weekly",
			dates:  []time.Time{day(2025, 1, 1), day(2025, 1, 8), day(2025, 1, 15), day(2025, 1, 22)},
			want:   model.FrequencyWeekly,
			wantOK: true,
		},
		{
			name:   "monthly with 30 and 31 day gaps",
			dates:  []time.Time{day(2025, 1, 15), day(2025, 2, 15), day(2025, 3, 15), day(2025, 4, 15)},
			want:   model.FrequencyMonthly,
			wantOK: true,
		},
		{
			name:   "yearly across a leap year",
			dates:  []time.Time{day(2023, 3, 10), day(2024, 3, 10), day(2025, 3, 10)},
			want:   model.FrequencyYearly,
			wantOK: true,
		},
		{
			name:   "yearly ten days late",
			dates:  []time.Time{day(2024, 1, 1), day(2024, 12, 31).AddDate(0, 0, 10)},
			want:   model.FrequencyYearly,
			wantOK: true,
		},
		{
			name:   "unsorted input",
			dates:  []time.Time{day(2025, 3, 15), day(2025, 1, 15), day(2025, 2, 15)},
			want:   model.FrequencyMonthly,
			wantOK: true,
		},
		{
			name:  "fortnightly falls between bands",
			dates: []time.Time{day(2025, 1, 1), day(2025, 1, 15), day(2025, 1, 29)},
		},
		{
			name:  "daily",
			dates: []time.Time{day(2025, 1, 1), day(2025, 1, 2), day(2025, 1, 3)},
		},
		{
			name:  "single date",
			dates: []time.Time{day(2025, 1, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFrequency(tt.dates)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountVariance(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    float64
	}{
		{name: "constant", amounts: []float64{649, 649, 649}, want: 0},
		{name: "single", amounts: []float64{100}, want: 0},
		{name: "zero mean", amounts: []float64{0, 0}, want: 0},
		{name: "spread", amounts: []float64{90, 110}, want: 0.1},
		{name: "wide spread", amounts: []float64{100, 400, 250}, want: 122.47448713915891 / 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AmountVariance(tt.amounts), 1e-9)
		})
	}
}

func TestTypicalDayOfPeriod(t *testing.T) {
	tests := []struct {
		name  string
		dates []time.Time
		freq  model.Frequency
		want  int
	}{
		{
			name:  "most common day of month",
			dates: []time.Time{day(2025, 1, 5), day(2025, 2, 5), day(2025, 3, 6)},
			freq:  model.FrequencyMonthly,
			want:  5,
		},
		{
			name:  "ties go to the earliest day",
			dates: []time.Time{day(2025, 1, 20), day(2025, 2, 3)},
			freq:  model.FrequencyMonthly,
			want:  3,
		},
		{
			name:  "weekly uses ISO weekday",
			dates: []time.Time{day(2025, 1, 5), day(2025, 1, 12)}, // Sundays
			freq:  model.FrequencyWeekly,
			want:  7,
		},
		{
			name: "no dates",
			freq: model.FrequencyMonthly,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypicalDayOfPeriod(tt.dates, tt.freq))
		})
	}
}

func TestIntervalConsistency(t *testing.T) {
	weekly := []time.Time{day(2025, 1, 1), day(2025, 1, 8), day(2025, 1, 15)}
	assert.InDelta(t, 1.0, IntervalConsistency(weekly, model.FrequencyWeekly), 1e-9)

	monthly := []time.Time{day(2025, 1, 15), day(2025, 2, 15), day(2025, 3, 15), day(2025, 4, 15)}
	assert.InDelta(t, 1-4.0/90, IntervalConsistency(monthly, model.FrequencyMonthly), 1e-9)

	erratic := []time.Time{day(2025, 1, 1), day(2025, 3, 1)}
	assert.InDelta(t, 0.0, IntervalConsistency(erratic, model.FrequencyWeekly), 1e-9)

	assert.Zero(t, IntervalConsistency(weekly[:1], model.FrequencyWeekly))
}

func TestCalculateConfidence(t *testing.T) {
	assert.InDelta(t, 0.88, CalculateConfidence(2, 0, 1), 1e-9)
	assert.InDelta(t, 1.0, CalculateConfidence(6, 0, 1), 1e-9)
	assert.InDelta(t, 1.0, CalculateConfidence(20, 0, 1), 1e-9, "occurrences beyond six add nothing")
	assert.InDelta(t, 0.18+0.35*0.7, CalculateConfidence(2, 0.3, 0), 1e-9)
	assert.InDelta(t, 0.18+0.35*0.7, CalculateConfidence(2, 5, 0), 1e-9, "variance is capped")

	t.Run("monotonic in occurrences", func(t *testing.T) {
		prev := 0.0
		for n := 2; n <= 8; n++ {
			got := CalculateConfidence(n, 0.1, 0.9)
			assert.GreaterOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("monotonic in variance", func(t *testing.T) {
		prev := 1.0
		for _, v := range []float64{0, 0.05, 0.1, 0.2, 0.3, 0.5} {
			got := CalculateConfidence(4, v, 0.9)
			assert.LessOrEqual(t, got, prev)
			prev = got
		}
	})

	t.Run("bounded", func(t *testing.T) {
		for _, c := range []float64{-1, 0, 0.5, 1} {
			got := CalculateConfidence(4, 0.1, c)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		}
	})
}

func TestPredictNextOccurrence(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		freq model.Frequency
		day  int
		want time.Time
	}{
		{name: "weekly", last: day(2025, 1, 29), freq: model.FrequencyWeekly, want: day(2025, 2, 5)},
		{name: "monthly keeps the day", last: day(2025, 1, 15), freq: model.FrequencyMonthly, day: 15, want: day(2025, 2, 15)},
		{name: "monthly uses the typical day", last: day(2025, 1, 14), freq: model.FrequencyMonthly, day: 15, want: day(2025, 2, 15)},
		{name: "31st into a 30 day month", last: day(2025, 3, 31), freq: model.FrequencyMonthly, day: 31, want: day(2025, 4, 30)},
		{name: "31st into February", last: day(2025, 1, 31), freq: model.FrequencyMonthly, day: 31, want: day(2025, 2, 28)},
		{name: "31st into leap February", last: day(2024, 1, 31), freq: model.FrequencyMonthly, day: 31, want: day(2024, 2, 29)},
		{name: "December rolls the year", last: day(2024, 12, 10), freq: model.FrequencyMonthly, day: 10, want: day(2025, 1, 10)},
		{name: "zero day keeps last day", last: day(2025, 5, 7), freq: model.FrequencyMonthly, want: day(2025, 6, 7)},
		{name: "yearly", last: day(2024, 3, 10), freq: model.FrequencyYearly, day: 10, want: day(2025, 3, 10)},
		{name: "yearly from 29 February", last: day(2024, 2, 29), freq: model.FrequencyYearly, day: 29, want: day(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictNextOccurrence(tt.last, tt.freq, tt.day)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
