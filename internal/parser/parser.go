// Package parser extracts structured transactions and bills from bank and payment-provider
// text messages.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/shopspring/decimal"
)

// Confidence adjustments applied on top of a recognizer's base score.
const (
	referenceBonus     = 0.05
	bankBonus          = 0.05
	looseConfidenceCap = 0.65
)

var dateRe = regexp.MustCompile(`(?i)\b(?:` + datePattern + `)\b`)

// Parser turns message bodies into transactions using an ordered list of recognizers.
// A Parser holds no mutable state and is safe for concurrent use.
type Parser struct {
	loc         *time.Location
	recognizers []recognizer
}

// Option configures a Parser.
type Option func(*Parser)

// WithLocation sets the time zone message dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// New creates a parser with the built-in recognizers.
func New(opts ...Option) *Parser {
	p := &Parser{
		loc:         time.Local,
		recognizers: defaultRecognizers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Explanation describes how a message body was handled.
type Explanation struct {
	Rejection  string
	Recognizer string
}

// Explain reports which filter rejected body or which recognizer accepted it.
// Both fields are empty when the message is simply unrecognized.
func (p *Parser) Explain(body string) Explanation {
	if reason, rejected := rejectionReason(body); rejected {
		return Explanation{Rejection: reason}
	}
	for _, r := range p.recognizers {
		if f, ok := r.extract(body); ok {
			if _, valid := parseAmount(f.amount); valid {
				return Explanation{Recognizer: r.name}
			}
			return Explanation{}
		}
	}
	return Explanation{}
}

// IsNonTransactional reports whether body matches a known non-transaction shape such as an
// OTP, an offer, a balance statement or a payment-due reminder.
func (p *Parser) IsNonTransactional(body string) bool {
	_, rejected := rejectionReason(body)
	return rejected
}

// RejectionReason returns the filter that rejects body, if any.
func (p *Parser) RejectionReason(body string) (string, bool) {
	return rejectionReason(body)
}

// ParseMessage parses a raw message, using its sender as a fallback source for the bank name.
func (p *Parser) ParseMessage(msg model.RawMessage) (*model.ParsedTransaction, bool) {
	return p.parse(msg.Body, msg.Sender, msg.Timestamp)
}

// Parse extracts a transaction from body. received is used as the transaction date when the
// message carries none. It returns false for non-transactional or unrecognized messages.
func (p *Parser) Parse(body string, received time.Time) (*model.ParsedTransaction, bool) {
	return p.parse(body, "", received)
}

func (p *Parser) parse(body, sender string, received time.Time) (*model.ParsedTransaction, bool) {
	if strings.TrimSpace(body) == "" {
		return nil, false
	}
	if _, rejected := rejectionReason(body); rejected {
		return nil, false
	}

	for _, r := range p.recognizers {
		f, ok := r.extract(body)
		if !ok {
			continue
		}
		// The first recognizer whose fields are all present wins, so an amount
		// it cannot read is a failure for the whole message.
		amount, ok := parseAmount(f.amount)
		if !ok {
			return nil, false
		}
		return p.build(r, f, amount.Round(2), body, sender, received), true
	}

	return nil, false
}

func (p *Parser) build(r recognizer, f fields, amount decimal.Decimal, body, sender string, received time.Time) *model.ParsedTransaction {
	date, dated := p.resolveDate(f.date, body)
	if !dated {
		date = received
	}

	txn := &model.ParsedTransaction{
		Amount:         amount,
		Direction:      r.direction,
		Merchant:       f.merchant,
		Date:           date,
		Reference:      findReference(body),
		Bank:           findBank(body, sender),
		CardLast4:      findCardLast4(body),
		IsSubscription: r.subscription || IsSubscriptionService(f.merchant, body),
	}

	confidence := r.confidence
	if txn.Reference != "" {
		confidence += referenceBonus
	}
	if txn.Bank != "" {
		confidence += bankBonus
	}
	if r.loose || !dated {
		confidence = min(confidence, looseConfidenceCap)
	}
	txn.Confidence = clamp01(confidence)

	return txn
}

// resolveDate prefers the date captured by the template, then any date in the body.
func (p *Parser) resolveDate(captured, body string) (time.Time, bool) {
	if captured != "" {
		if t, ok := parseDate(captured, p.loc); ok {
			return t, true
		}
	}
	for _, candidate := range dateRe.FindAllString(body, -1) {
		if t, ok := parseDate(candidate, p.loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
