package tui

import "github.com/Veraticus/spice-sms/internal/model"

type action int

const (
	actionConfirm action = iota
	actionDismiss
)

type suggestionsLoadedMsg struct {
	err         error
	suggestions []model.Suggestion
}

type reviewedMsg struct {
	err    error
	id     int64
	ruleID int64
	action action
}
