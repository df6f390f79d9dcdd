package pattern

import (
	"math"
	"slices"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Average gap bands, in days, for each frequency. Anything outside them is not periodic.
var frequencyBands = []struct {
	freq     model.Frequency
	min, max float64
}{
	{freq: model.FrequencyWeekly, min: 5, max: 9},
	{freq: model.FrequencyMonthly, min: 25, max: 35},
	{freq: model.FrequencyYearly, min: 350, max: 380},
}

const hoursPerDay = 24

// sortedDates returns a sorted copy of dates.
func sortedDates(dates []time.Time) []time.Time {
	out := slices.Clone(dates)
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// gaps returns the day gaps between consecutive sorted dates.
func gaps(sorted []time.Time) []float64 {
	if len(sorted) < 2 {
		return nil
	}
	out := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		out = append(out, sorted[i].Sub(sorted[i-1]).Hours()/hoursPerDay)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// DetectFrequency classifies the average gap between dates. It needs at least two dates.
func DetectFrequency(dates []time.Time) (model.Frequency, bool) {
	if len(dates) < 2 {
		return "", false
	}

	avg := mean(gaps(sortedDates(dates)))
	for _, band := range frequencyBands {
		if avg >= band.min && avg <= band.max {
			return band.freq, true
		}
	}
	return "", false
}

// AmountVariance returns the coefficient of variation of amounts, or 0 when it is undefined.
func AmountVariance(amounts []float64) float64 {
	if len(amounts) < 2 {
		return 0
	}
	avg := mean(amounts)
	if avg == 0 {
		return 0
	}

	sumSquares := 0.0
	for _, a := range amounts {
		sumSquares += (a - avg) * (a - avg)
	}
	stddev := math.Sqrt(sumSquares / float64(len(amounts)))

	return stddev / math.Abs(avg)
}

// TypicalDayOfPeriod returns the most common ISO weekday (1 = Monday) for weekly patterns and
// the most common day of month otherwise. Ties go to the smallest day.
func TypicalDayOfPeriod(dates []time.Time, freq model.Frequency) int {
	if len(dates) == 0 {
		return 0
	}

	counts := make(map[int]int)
	for _, d := range dates {
		switch freq {
		case model.FrequencyWeekly:
			counts[isoWeekday(d)]++
		case model.FrequencyMonthly, model.FrequencyYearly:
			counts[d.Day()]++
		}
	}

	best, bestCount := 0, 0
	for day, count := range counts {
		if count > bestCount || (count == bestCount && day < best) {
			best, bestCount = day, count
		}
	}
	return best
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

// IntervalConsistency scores how closely the gaps between dates follow the canonical period:
// 1 means perfectly regular, 0 means gaps deviate by 100% or more on average.
func IntervalConsistency(dates []time.Time, freq model.Frequency) float64 {
	period := float64(freq.Days())
	observed := gaps(sortedDates(dates))
	if period == 0 || len(observed) == 0 {
		return 0
	}

	deviations := make([]float64, len(observed))
	for i, g := range observed {
		deviations[i] = math.Abs(g-period) / period
	}

	return 1 - math.Min(mean(deviations), 1)
}

// CalculateConfidence combines how often a pattern repeated, how stable its amount is and how
// regular its timing is into a score in [0, 1].
func CalculateConfidence(occurrences int, variance, intervalConsistency float64) float64 {
	occurrenceFactor := 0.6 + float64(min(max(occurrences-2, 0), 4))*0.1
	amountFactor := 1 - math.Min(math.Max(variance, 0), 0.3)/0.3*0.3

	score := 0.3*occurrenceFactor + 0.35*amountFactor + 0.35*intervalConsistency
	return math.Max(0, math.Min(1, score))
}

// PredictNextOccurrence projects the next date of a pattern from its last occurrence.
// A dayOfPeriod of 0 keeps the last occurrence's day.
func PredictNextOccurrence(last time.Time, freq model.Frequency, dayOfPeriod int) time.Time {
	switch freq {
	case model.FrequencyWeekly:
		return last.AddDate(0, 0, 7)
	case model.FrequencyMonthly:
		return addMonth(last, dayOfPeriod)
	case model.FrequencyYearly:
		return addYear(last, dayOfPeriod)
	}
	return last
}

// addMonth moves to dayOfPeriod of the following month, clamped to that month's length.
func addMonth(last time.Time, dayOfPeriod int) time.Time {
	if dayOfPeriod <= 0 {
		dayOfPeriod = last.Day()
	}
	year, month := last.Year(), last.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	day := min(dayOfPeriod, daysIn(year, month, last.Location()))

	return time.Date(year, month, day, last.Hour(), last.Minute(), last.Second(), 0, last.Location())
}

// addYear moves to the same month one year later. The day is clamped to that month's length,
// which only matters for 29 February.
func addYear(last time.Time, dayOfPeriod int) time.Time {
	if dayOfPeriod <= 0 {
		dayOfPeriod = last.Day()
	}
	year, month := last.Year()+1, last.Month()
	day := min(dayOfPeriod, daysIn(year, month, last.Location()))

	return time.Date(year, month, day, last.Hour(), last.Minute(), last.Second(), 0, last.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
