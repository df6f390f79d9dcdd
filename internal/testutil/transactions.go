package testutil

import (
	"fmt"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/shopspring/decimal"
)

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Debit builds a parsed SMS debit with a unique raw body.
func Debit(merchant string, amount float64, date time.Time) model.Transaction {
	body := fmt.Sprintf("Paid Rs.%.2f to %s on %s using UPI. -HDFC Bank",
		amount, merchant, date.Format("02-01-06"))
	return model.Transaction{
		RawBody: body,
		Sender:  "VM-HDFCBK",
		Source:  model.SourceSMS,
		ParsedTransaction: model.ParsedTransaction{
			Date:       date,
			Amount:     decimal.NewFromFloat(amount).Round(2),
			Direction:  model.DirectionDebit,
			Merchant:   merchant,
			Bank:       "HDFC Bank",
			Confidence: 0.97,
		},
	}
}

// Credit builds a parsed SMS credit with a unique raw body.
func Credit(merchant string, amount float64, date time.Time) model.Transaction {
	txn := Debit(merchant, amount, date)
	txn.RawBody = fmt.Sprintf("Rs.%.2f credited to a/c XX1234 on %s from %s. -HDFC Bank",
		amount, date.Format("02-01-06"), merchant)
	txn.Direction = model.DirectionCredit
	return txn
}

// Series builds count debits for merchant starting at start and stepping by the given
// number of days.
func Series(merchant string, amount float64, start time.Time, stepDays, count int) []model.Transaction {
	txns := make([]model.Transaction, 0, count)
	for i := range count {
		txns = append(txns, Debit(merchant, amount, start.AddDate(0, 0, i*stepDays)))
	}
	return txns
}

// MonthlySeries builds count debits for merchant on the same day of consecutive months.
func MonthlySeries(merchant string, amount float64, start time.Time, count int) []model.Transaction {
	txns := make([]model.Transaction, 0, count)
	for i := range count {
		txns = append(txns, Debit(merchant, amount, start.AddDate(0, i, 0)))
	}
	return txns
}
