package notify

import (
	"fmt"

	"github.com/Veraticus/spice-sms/internal/model"
)

// BillEvent describes a credit-card statement that has become due.
func BillEvent(bill model.ParsedBill) model.Event {
	body := "Total due ₹" + bill.TotalDue.StringFixed(2)
	if bill.MinimumDue != nil {
		body += ", minimum ₹" + bill.MinimumDue.StringFixed(2)
	}
	if !bill.DueDate.IsZero() {
		body += " by " + bill.DueDate.Format("02 Jan 2006")
	}

	title := "Card bill ready"
	if bill.CardLast4 != "" {
		title += " for card " + bill.CardLast4
	}
	return model.Event{Type: model.EventBillDue, Title: title, Body: body}
}

// NewSubscriptionEvent describes a merchant that recently started charging regularly.
func NewSubscriptionEvent(sub model.NewSubscription) model.Event {
	body := fmt.Sprintf("%d charges averaging ₹%.2f since %s",
		sub.Occurrences, sub.AverageAmount, sub.FirstSeen.Format("02 Jan 2006"))
	if sub.Frequency != nil {
		body += ", looks " + string(*sub.Frequency)
	}
	return model.Event{
		Type:  model.EventNewSubscription,
		Title: "New subscription: " + sub.DisplayName,
		Body:  body,
	}
}

// DormantEvent describes a confirmed rule whose payments stopped appearing.
func DormantEvent(d model.DormantSubscription) model.Event {
	var body string
	switch d.Status {
	case model.DormantInactive:
		body = "No matching payment has ever been seen"
	case model.DormantPaymentIssue:
		body = fmt.Sprintf("Last paid %d days ago; one payment looks missed", d.DaysSinceLastSeen)
	case model.DormantPossiblyCancelled:
		body = fmt.Sprintf("Last paid %d days ago; %d payments missed", d.DaysSinceLastSeen, d.MissedPayments)
	}
	return model.Event{
		Type:  model.EventDormantSubscription,
		Title: fmt.Sprintf("%s: %s", d.Status, d.Rule.MerchantPattern),
		Body:  body,
	}
}
