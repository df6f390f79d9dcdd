package model

import "time"

// EventType identifies a notification event.
type EventType string

// Event type constants.
const (
	EventNewSubscription     EventType = "NEW_SUBSCRIPTION"
	EventDormantSubscription EventType = "DORMANT_SUBSCRIPTION"
	EventReviewNeeded        EventType = "REVIEW_NEEDED"
	EventBillDue             EventType = "BILL_DUE"
)

// Event is something worth telling the user about.
type Event struct {
	CreatedAt time.Time
	Type      EventType
	Title     string
	Body      string
	ID        int64 // Assigned by the sink
}
