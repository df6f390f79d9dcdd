package parser

import (
	"regexp"
	"strings"
)

var (
	referenceRe = regexp.MustCompile(`(?i)\b(?:upi\s*ref(?:erence)?|ref(?:erence)?|txn|transaction\s+id|utr|rrn)\.?\s*(?:no\.?|number|id)?\s*[:#.\-]?\s*([a-z0-9]{6,})`)

	cardRe = regexp.MustCompile(`(?i)\bcard\s*(?:no\.?\s*)?(?:ending\s*(?:with|in)?\s*)?[x*]*\s*(\d{4})\b`)

	vpaRe = regexp.MustCompile(`^[\w.\-]+@[\w.\-]+$`)

	vpaTokenRe = regexp.MustCompile(`[\w.\-]+@[\w.\-]+`)

	// signatureRe matches a trailing "-HDFC Bank" style sign-off.
	signatureRe = regexp.MustCompile(`(?:^|\s)-\s*([A-Za-z][A-Za-z ]{1,40})$`)
)

type bankKeyword struct {
	re   *regexp.Regexp
	name string
}

// bankKeywords is checked in order, so longer names come before their prefixes.
var bankKeywords = compileBanks([][2]string{
	{`hdfc`, "HDFC Bank"},
	{`icici`, "ICICI Bank"},
	{`state\s+bank\s+of\s+india|sbi`, "State Bank of India"},
	{`axis`, "Axis Bank"},
	{`kotak`, "Kotak Mahindra Bank"},
	{`yes\s*bank`, "Yes Bank"},
	{`idfc`, "IDFC First Bank"},
	{`indusind`, "IndusInd Bank"},
	{`bank\s+of\s+baroda`, "Bank of Baroda"},
	{`punjab\s+national\s+bank|pnb`, "Punjab National Bank"},
	{`canara`, "Canara Bank"},
	{`union\s+bank`, "Union Bank of India"},
	{`federal\s+bank`, "Federal Bank"},
	{`paytm\s+payments\s+bank|paytm`, "Paytm Payments Bank"},
	{`american\s+express|amex`, "American Express"},
})

func compileBanks(pairs [][2]string) []bankKeyword {
	out := make([]bankKeyword, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, bankKeyword{
			re:   regexp.MustCompile(`(?i)\b(?:` + p[0] + `)`),
			name: p[1],
		})
	}
	return out
}

// subscriptionServices is the fixed vocabulary of known subscription merchants.
var subscriptionServices = []string{
	"netflix",
	"spotify",
	"amazon prime",
	"prime video",
	"hotstar",
	"youtube premium",
	"youtube music",
	"apple.com/bill",
	"apple music",
	"icloud",
	"google one",
	"google play",
	"zee5",
	"sonyliv",
	"jiocinema",
	"audible",
	"linkedin premium",
	"microsoft 365",
	"adobe",
	"chatgpt",
	"openai",
	"swiggy one",
	"zomato gold",
}

func findReference(body string) string {
	if m := referenceRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

func findCardLast4(body string) string {
	if m := cardRe.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// findBank names the account's bank from the message sign-off, then the sender id, then
// the rest of the body. Payment addresses are ignored because their handle names the
// payee's provider, not the account holder's bank.
func findBank(body, sender string) string {
	var signature string
	if m := signatureRe.FindStringSubmatch(strings.TrimSpace(body)); m != nil {
		signature = m[1]
	}

	for _, text := range []string{signature, sender, vpaTokenRe.ReplaceAllString(body, " ")} {
		if name := matchBank(text); name != "" {
			return name
		}
	}
	return ""
}

func matchBank(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, b := range bankKeywords {
		if b.re.MatchString(text) {
			return b.name
		}
	}
	return ""
}

// IsSubscriptionService reports whether any text mentions a known subscription service.
func IsSubscriptionService(texts ...string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, service := range subscriptionServices {
			if strings.Contains(lower, service) {
				return true
			}
		}
	}
	return false
}

func isVPA(s string) bool {
	return vpaRe.MatchString(s)
}

// cleanMerchant strips surrounding delimiters and whitespace but keeps the name itself intact.
func cleanMerchant(raw string) string {
	return strings.Trim(strings.Join(strings.Fields(raw), " "), " .,;:-*'\"()[]")
}
