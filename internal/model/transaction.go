package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indicates whether money left or entered the account.
type Direction string

const (
	// DirectionDebit represents money leaving the account.
	DirectionDebit Direction = "DEBIT"
	// DirectionCredit represents money entering the account.
	DirectionCredit Direction = "CREDIT"
)

// ReviewThreshold is the confidence below which a parsed record should be reviewed manually.
const ReviewThreshold = 0.7

// TransactionSource records where a stored transaction came from.
type TransactionSource string

const (
	// SourceSMS marks transactions extracted from text messages.
	SourceSMS TransactionSource = "sms"
	// SourceOFX marks transactions imported from OFX/QFX statements.
	SourceOFX TransactionSource = "ofx"
)

// RawMessage is a single message as read from the inbox.
type RawMessage struct {
	Timestamp time.Time
	Sender    string
	Body      string
}

// ParsedTransaction is the structured result of parsing one message.
type ParsedTransaction struct {
	Date           time.Time
	Amount         decimal.Decimal
	Direction      Direction
	Merchant       string
	Reference      string // Empty when the message carries no reference code
	Bank           string
	CardLast4      string
	Confidence     float64
	IsSubscription bool
}

// NeedsReview reports whether the extraction is too uncertain to trust without a human.
func (p ParsedTransaction) NeedsReview() bool {
	return p.Confidence < ReviewThreshold
}

// Transaction represents a stored transaction from any source.
type Transaction struct {
	CreatedAt time.Time
	ID        string
	RawBody   string
	Sender    string
	Source    TransactionSource
	ParsedTransaction
	CategoryID int // 0 when uncategorized
}

// AmountFloat returns the amount as a float for statistical work.
func (t Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

// IsDebit reports whether the transaction is an outgoing payment.
func (t Transaction) IsDebit() bool {
	return t.Direction == DirectionDebit
}

// GenerateHash creates a stable hash for duplicate detection of bodiless imports.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Merchant,
		t.Reference)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ParsedBill is a credit-card statement extracted from a statement-ready message.
type ParsedBill struct {
	DueDate    time.Time
	TotalDue   decimal.Decimal
	MinimumDue *decimal.Decimal
	CardLast4  string
}
