package parser

import (
	"strings"
	"time"
)

// datePattern matches the day-month-year forms banks use in messages.
const datePattern = `\d{1,2}[-/](?:\d{1,2}|[a-z]{3})[-/](?:\d{4}|\d{2})|\d{1,2}\s+[a-z]{3}\s+(?:\d{4}|\d{2})`

// dateLayouts lists the accepted layouts, always day first.
var dateLayouts = []string{
	"2-1-06",
	"2-1-2006",
	"2/1/06",
	"2/1/2006",
	"2-Jan-06",
	"2-Jan-2006",
	"2/Jan/06",
	"2/Jan/2006",
	"2 Jan 2006",
	"2 Jan 06",
}

// parseDate parses a day-month-year date in any supported layout.
func parseDate(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.Join(strings.Fields(raw), " ")
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
