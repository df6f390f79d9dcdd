package model

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the detected period of a recurring expense.
type Frequency string

// Frequency constants.
const (
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// Days returns the canonical period length in days.
func (f Frequency) Days() int {
	switch f {
	case FrequencyWeekly:
		return 7
	case FrequencyMonthly:
		return 30
	case FrequencyYearly:
		return 365
	}
	return 0
}

// Valid reports whether f is one of the three supported bands.
func (f Frequency) Valid() bool {
	return f.Days() > 0
}

// ParseFrequency converts a case-insensitive name into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q", s)
	}
	return f, nil
}

// PatternSuggestion is a detected, unconfirmed recurring expense.
type PatternSuggestion struct {
	NextDate        time.Time `json:"next_date"`
	MerchantPattern string    `json:"merchant_pattern"`
	DisplayName     string    `json:"display_name"`
	Frequency       Frequency `json:"frequency"`
	AverageAmount   float64   `json:"average_amount"`
	Confidence      float64   `json:"confidence"`
	DayOfPeriod     int       `json:"day_of_period"`
	Occurrences     int       `json:"occurrences"`
	CategoryID      int       `json:"category_id,omitempty"`
}

// SuggestionStatus tracks the lifecycle of a stored suggestion.
type SuggestionStatus string

// Suggestion status constants.
const (
	SuggestionPending   SuggestionStatus = "PENDING"
	SuggestionConfirmed SuggestionStatus = "CONFIRMED"
	SuggestionDismissed SuggestionStatus = "DISMISSED"
)

// Suggestion is a PatternSuggestion persisted for later confirmation or dismissal.
type Suggestion struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	RuleID    *int64
	Status    SuggestionStatus
	PatternSuggestion
	ID int64
}

// RecurringRule is a confirmed periodic expense.
type RecurringRule struct {
	CreatedAt       time.Time  `json:"created_at"`
	NextExpected    time.Time  `json:"next_expected"`
	LastOccurrence  *time.Time `json:"last_occurrence,omitempty"`
	MerchantPattern string     `json:"merchant_pattern"`
	Frequency       Frequency  `json:"frequency"`
	ID              int64      `json:"id"`
	ExpectedAmount  float64    `json:"expected_amount"`
	CategoryID      int        `json:"category_id"`
	IsActive        bool       `json:"is_active"`
}

// RuleFromSuggestion builds the rule a confirmed suggestion turns into.
func RuleFromSuggestion(s PatternSuggestion) RecurringRule {
	return RecurringRule{
		MerchantPattern: s.MerchantPattern,
		Frequency:       s.Frequency,
		ExpectedAmount:  s.AverageAmount,
		NextExpected:    s.NextDate,
		CategoryID:      s.CategoryID,
		IsActive:        true,
	}
}
