package parser

import (
	"regexp"

	"github.com/Veraticus/spice-sms/internal/model"
)

var (
	totalDueRe = mustTemplate(`\btotal\s+(?:amount\s+|amt\.?\s+)?due\s*(?:is|of)?\s*[:\-]?\s*{amount}`)
	minDueRe   = mustTemplate(`\bmin(?:imum)?\.?\s+(?:amount\s+|amt\.?\s+)?due\s*(?:is|of)?\s*[:\-]?\s*{amount}`)
	dueDateRe  = mustTemplate(`\bdue\s+(?:date|on|by)\s*(?:is)?\s*[:\-]?\s*{date}`)
)

func captureGroup(re *regexp.Regexp, body, group string) string {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[re.SubexpIndex(group)]
}

// ParseBill extracts a statement-ready credit card bill. It returns false when no total due
// can be read from body.
func (p *Parser) ParseBill(body string) (*model.ParsedBill, bool) {
	total, ok := parseAmount(captureGroup(totalDueRe, body, "amount"))
	if !ok {
		return nil, false
	}

	bill := &model.ParsedBill{
		TotalDue:  total,
		CardLast4: findCardLast4(body),
	}

	if minimum, ok := parseAmount(captureGroup(minDueRe, body, "amount")); ok {
		bill.MinimumDue = &minimum
	}
	if due, ok := parseDate(captureGroup(dueDateRe, body, "date"), p.loc); ok {
		bill.DueDate = due
	}

	return bill, true
}
