package model

import "time"

// PredictionSource tells whether a prediction comes from a confirmed rule or a detected pattern.
type PredictionSource string

// Prediction source constants.
const (
	PredictionConfirmed PredictionSource = "CONFIRMED"
	PredictionDetected  PredictionSource = "DETECTED"
)

// PredictedExpense is a projected expense for an upcoming period.
type PredictedExpense struct {
	Date            time.Time
	MerchantPattern string
	DisplayName     string
	Frequency       Frequency
	Source          PredictionSource
	Amount          float64
	Confidence      float64
	CategoryID      int
}

// NewSubscription is a merchant that recently started charging regularly.
type NewSubscription struct {
	FirstSeen       time.Time
	Frequency       *Frequency
	MerchantPattern string
	DisplayName     string
	AverageAmount   float64
	Confidence      float64
	Occurrences     int
}

// DormantStatus classifies a confirmed rule whose payments stopped appearing.
type DormantStatus string

// Dormant status constants.
const (
	DormantInactive          DormantStatus = "INACTIVE"
	DormantPaymentIssue      DormantStatus = "PAYMENT_ISSUE"
	DormantPossiblyCancelled DormantStatus = "POSSIBLY_CANCELLED"
)

// DormantSubscription is a confirmed rule flagged as no longer being charged.
type DormantSubscription struct {
	LastSeen          *time.Time
	Status            DormantStatus
	Rule              RecurringRule
	DaysSinceLastSeen int
	MissedPayments    int
}

// RecurringHealth aggregates the state of all recurring expenses.
type RecurringHealth struct {
	PredictedTotal       float64
	ConfirmedTotal       float64
	DetectedTotal        float64
	PotentialSavings     float64
	ConfirmedCount       int
	DetectedCount        int
	NewSubscriptionCount int
	DormantCount         int
}

// ForecastConfidence grades a budget forecast by how much history backs it.
type ForecastConfidence string

// Forecast confidence constants.
const (
	ForecastHigh         ForecastConfidence = "HIGH"
	ForecastMedium       ForecastConfidence = "MEDIUM"
	ForecastLow          ForecastConfidence = "LOW"
	ForecastInsufficient ForecastConfidence = "INSUFFICIENT"
)

// BudgetForecast is the projected spend for the next calendar month.
type BudgetForecast struct {
	Month          time.Time
	ByCategory     map[int]float64
	Confidence     ForecastConfidence
	RecurringTotal float64
	VariableTotal  float64
	Total          float64
	MonthsOfData   int
}
