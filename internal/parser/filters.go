package parser

import "regexp"

// Rejection reasons for messages that look financial but describe no transaction.
const (
	ReasonOTP            = "otp"
	ReasonPromotional    = "promotional"
	ReasonBalanceInquiry = "balance_inquiry"
	ReasonDueReminder    = "due_reminder"
)

var (
	otpRe = regexp.MustCompile(`(?i)(?:\botp\b|one[\s-]time\s+password|verification\s+code|passcode)\s*(?:is|for|to|:)|\b\d{4,8}\s+is\s+(?:your|the)\s+(?:otp|one[\s-]time|verification)`)

	promoRe = regexp.MustCompile(`(?i)\b(?:offers?|pre-?approved|apply\s+now|limited\s+(?:time|period)|congratulations|you\s+are\s+eligible|get\s+up\s*to|upto\s+\d+%|\d+%\s+off|t\s*&\s*c\s+apply|vouchers?|coupons?|avail\s+now|hurry)\b`)

	balanceRe = regexp.MustCompile(`(?i)\b(?:avl\.?\s+bal(?:ance)?|available\s+balance|a/c\s+balance|account\s+balance|balance)\b.*?\b(?:is|as\s+on|:)`)

	transactionVerbRe = regexp.MustCompile(`(?i)\b(?:debited|credited|spent|paid|sent|received|renewed|charged|transferred|withdrawn|purchase)\b`)

	dueReminderRe = regexp.MustCompile(`(?i)\b(?:payment\s+(?:of\s+\S+\s+)?(?:is\s+)?due|due\s+(?:date|on|by|today|tomorrow)|min(?:imum)?\.?\s+(?:amount\s+|amt\s+)?due|total\s+(?:amount\s+|amt\s+)?due|pay\s+(?:by|before)|overdue|reminder)\b`)
)

// rejectionReason reports why body is not a transaction, or false when it may be one.
func rejectionReason(body string) (string, bool) {
	switch {
	case otpRe.MatchString(body):
		return ReasonOTP, true
	case promoRe.MatchString(body):
		return ReasonPromotional, true
	case dueReminderRe.MatchString(body):
		return ReasonDueReminder, true
	case balanceRe.MatchString(body) && !transactionVerbRe.MatchString(body):
		return ReasonBalanceInquiry, true
	}
	return "", false
}
