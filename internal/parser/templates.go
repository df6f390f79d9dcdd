package parser

import (
	"regexp"
	"strings"

	"github.com/Veraticus/spice-sms/internal/model"
)

// Template tokens expanded before compilation.
var templateTokens = strings.NewReplacer(
	"{amount}", `(?:`+currencyPattern+`\s*)?(?P<amount>`+amountPattern+`)`,
	"{date}", `(?P<date>`+datePattern+`)`,
	"{merchant}", `(?P<merchant>[^\n]+?)`,
	"{vpa}", `(?P<merchant>[\w.\-]+@[\w.\-]+)`,
	"{gap}", `(?s:.*?)`,
	"{end}", `(?:\.\s|\.$|\s+avl\b|\s+ref\b|\s+upi\b|\s*\(|;|\n|$)`,
)

// mustTemplate compiles a case-insensitive message template.
func mustTemplate(tpl string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + templateTokens.Replace(tpl))
}

// recognizer extracts one message family. Recognizers are tried in order and the first
// whose required fields can all be extracted wins.
type recognizer struct {
	accept       func(merchant string) bool
	name         string
	direction    model.Direction
	patterns     []*regexp.Regexp
	confidence   float64 // Base confidence when the recognizer matches
	subscription bool
	loose        bool // Fields are not clearly delimited, so the result always needs review
}

// Recognizer names, in priority order.
const (
	RecognizerUPIPayee      = "upi_payee"
	RecognizerUPIVPA        = "upi_vpa"
	RecognizerAccountDebit  = "account_debit"
	RecognizerAccountCredit = "account_credit"
	RecognizerCardPOS       = "card_pos"
	RecognizerSubscription  = "subscription"
	RecognizerLooseDebit    = "loose_debit"
)

func notVPA(merchant string) bool {
	return !isVPA(merchant)
}

// defaultRecognizers is compiled once at package initialization.
var defaultRecognizers = []recognizer{
	{
		name:       RecognizerUPIPayee,
		direction:  model.DirectionDebit,
		confidence: 0.92,
		accept:     notVPA,
		patterns: []*regexp.Regexp{
			mustTemplate(`\b(?:paid|sent)\s+{amount}{gap}\bto\s+{merchant}\s+on\s+{date}`),
			mustTemplate(`\b(?:paid|sent)\s+{amount}\s+to\s+{merchant}\s+(?:via|using|through|by)\s+upi\b`),
		},
	},
	{
		name:       RecognizerUPIVPA,
		direction:  model.DirectionDebit,
		confidence: 0.9,
		patterns: []*regexp.Regexp{
			mustTemplate(`{amount}\s+(?:has\s+been\s+|is\s+|was\s+)?(?:debited|paid|sent|transferred)\b{gap}\bto\s+(?:vpa\s+)?{vpa}`),
			mustTemplate(`\b(?:paid|sent|debited|transferred)\s+(?:by\s+|for\s+|with\s+)?{amount}{gap}\bto\s+(?:vpa\s+)?{vpa}`),
		},
	},
	{
		name:       RecognizerAccountDebit,
		direction:  model.DirectionDebit,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			mustTemplate(`\b(?:a/c|acct|account)\b{gap}\bdebited\s+(?:for|by|with)?\s*{amount}\s+on\s+{date}[.,]?\s*(?:towards|to|for|by|at|info:?|-)\s*(?:transfer\s+to\s+)?{merchant}{end}`),
			mustTemplate(`{amount}\s+(?:has\s+been\s+|is\s+|was\s+)?debited\s+from\s+(?:your\s+)?(?:a/c|acct|account)\b[^\n]*?\bon\s+{date}[.,]?\s*(?:info:?|towards|to|for|by|at)\s*{merchant}{end}`),
		},
	},
	{
		name:       RecognizerAccountCredit,
		direction:  model.DirectionCredit,
		confidence: 0.85,
		patterns: []*regexp.Regexp{
			mustTemplate(`\b(?:a/c|acct|account)\b{gap}\bcredited\s+(?:with|by|for)?\s*{amount}\s+on\s+{date}[.,]?\s*(?:by|from|towards|info:?|-)\s*{merchant}{end}`),
			mustTemplate(`{amount}\s+(?:has\s+been\s+|is\s+|was\s+)?credited\s+(?:to|in)\s+(?:your\s+)?(?:a/c|acct|account)\b[^\n]*?\bon\s+{date}[.,]?\s*(?:by|from|info:?)\s*{merchant}{end}`),
			mustTemplate(`\breceived\s+{amount}\s+from\s+{merchant}(?:\s+on\s+{date}|\s+in\s+your\b|\s+via\b|\s+to\s+your\b|\.\s|\.$|$)`),
		},
	},
	{
		name:       RecognizerCardPOS,
		direction:  model.DirectionDebit,
		confidence: 0.92,
		patterns: []*regexp.Regexp{
			mustTemplate(`{amount}\s+(?:spent|charged|debited)\s+(?:on|using|via|from)\s+[^\n]*?\bcard\b[^\n]*?\bat\s+{merchant}\s+on\s+{date}`),
			mustTemplate(`\bcard\b[^\n]*?\bfor\s+{amount}\s+at\s+{merchant}\s+on\s+{date}`),
			mustTemplate(`\b(?:txn|transaction|purchase)\s+of\s+{amount}[^\n]*?\bcard\b[^\n]*?\bat\s+{merchant}\s+on\s+{date}`),
			mustTemplate(`{amount}\s+(?:spent|charged|debited)\s+(?:on|using|via|from)\s+[^\n]*?\bcard\b[^\n]*?\bon\s+{date}\s+at\s+{merchant}{end}`),
		},
	},
	{
		name:         RecognizerSubscription,
		direction:    model.DirectionDebit,
		confidence:   0.88,
		subscription: true,
		patterns: []*regexp.Regexp{
			mustTemplate(`\b(?:auto[\s-]?pay|auto[\s-]?debit|auto[\s-]?renewal|recurring\s+payment|e-?mandate|standing\s+instruction)\s+(?:of|for)\s+{amount}\s+(?:for|to|towards)\s+{merchant}(?:\s+(?:has|was|is|debited|successful|processed|on)\b|{end})`),
			mustTemplate(`\bsubscription\s+(?:to|for|of)\s+{merchant}\s+(?:of|for|worth)\s+{amount}`),
			mustTemplate(`{amount}\s+(?:has\s+been\s+|was\s+|is\s+)?(?:charged|debited|renewed)\s+for\s+(?:your\s+)?{merchant}\s+(?:subscription|membership|renewal|plan)\b`),
		},
	},
	{
		name:       RecognizerLooseDebit,
		direction:  model.DirectionDebit,
		confidence: 0.6,
		loose:      true,
		patterns: []*regexp.Regexp{
			mustTemplate(`\b(?:debited|spent|paid|charged)\b[^\n]*?{amount}[^\n]*?\b(?:at|to|towards)\s+(?P<merchant>[^.\n]{2,40})`),
			mustTemplate(`{amount}[^\n]*?\b(?:debited|spent|paid|charged)\b[^\n]*?\b(?:at|to|towards)\s+(?P<merchant>[^.\n]{2,40})`),
		},
	},
}

// fields holds the raw captures of one template match.
type fields struct {
	amount   string
	date     string
	merchant string
}

// extract runs the recognizer's templates against body and returns the first complete capture.
func (r recognizer) extract(body string) (fields, bool) {
	for _, re := range r.patterns {
		idx := re.FindStringSubmatchIndex(body)
		if idx == nil {
			continue
		}

		var f fields
		for i, name := range re.SubexpNames() {
			start, end := idx[2*i], idx[2*i+1]
			if name == "" || start < 0 {
				continue
			}
			switch name {
			case "amount":
				f.amount = body[start:end]
			case "date":
				f.date = body[start:end]
			case "merchant":
				f.merchant = cleanMerchant(body[start:end])
			}
		}

		if f.amount == "" || f.merchant == "" {
			continue
		}
		if r.accept != nil && !r.accept(f.merchant) {
			continue
		}
		return f, true
	}
	return fields{}, false
}
