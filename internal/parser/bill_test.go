package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_ParseBill(t *testing.T) {
	p := New(WithLocation(time.UTC))

	t.Run("full statement", func(t *testing.T) {
		bill, ok := p.ParseBill("Statement for HDFC Bank Credit Card XX1111: Total Amount Due Rs.12,345.60, Minimum Amount Due Rs.620.00. Due date 05-02-25.")
		require.True(t, ok)
		assert.Equal(t, "12345.6", bill.TotalDue.String())
		require.NotNil(t, bill.MinimumDue)
		assert.Equal(t, "620", bill.MinimumDue.String())
		assert.True(t, time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC).Equal(bill.DueDate))
		assert.Equal(t, "1111", bill.CardLast4)
	})

	t.Run("without minimum due", func(t *testing.T) {
		bill, ok := p.ParseBill("Your card ending 4321 statement is ready. Total due: INR 2,000.00. Pay by due date 10-Mar-25.")
		require.True(t, ok)
		assert.Equal(t, "2000", bill.TotalDue.String())
		assert.Nil(t, bill.MinimumDue)
		assert.Equal(t, "4321", bill.CardLast4)
	})

	t.Run("no total due", func(t *testing.T) {
		bill, ok := p.ParseBill("Minimum amount due Rs.500.00 on your card XX1111")
		assert.False(t, ok)
		assert.Nil(t, bill)
	})
}
