// Package tui provides the interactive review screen for detected recurring patterns.
package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// SuggestionLister loads the suggestions awaiting review.
type SuggestionLister interface {
	ListPendingSuggestions(ctx context.Context) ([]model.Suggestion, error)
}

// PatternReviewer applies a review decision.
type PatternReviewer interface {
	ConfirmPattern(ctx context.Context, suggestionID int64) (int64, error)
	DismissPattern(ctx context.Context, suggestionID int64) error
}

// Summary counts the decisions made in one session.
type Summary struct {
	Confirmed int
	Dismissed int
	Skipped   int
	Remaining int
}

// Model holds the review screen state.
type Model struct {
	ctx         context.Context
	lastError   error
	suggestions SuggestionLister
	reviewer    PatternReviewer
	status      string
	pending     []model.Suggestion
	keymap      KeyMap
	help        help.Model
	summary     Summary
	cursor      int
	width       int
	height      int
	busy        bool
	loaded      bool
	quitting    bool
}

// NewModel creates a review screen over the pending suggestions.
func NewModel(ctx context.Context, suggestions SuggestionLister, reviewer PatternReviewer) Model {
	return Model{
		ctx:         ctx,
		suggestions: suggestions,
		reviewer:    reviewer,
		keymap:      DefaultKeyMap(),
		help:        help.New(),
	}
}

// Init loads the pending suggestions.
func (m Model) Init() tea.Cmd {
	return m.loadSuggestions()
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case suggestionsLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.lastError = msg.err
			m.quitting = true
			return m, tea.Quit
		}
		m.pending = msg.suggestions
		if len(m.pending) == 0 {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case reviewedMsg:
		return m.handleReviewed(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit), key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.busy || len(m.pending) == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.pending)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Home):
		m.cursor = 0
	case key.Matches(msg, m.keymap.End):
		m.cursor = len(m.pending) - 1
	case key.Matches(msg, m.keymap.Confirm):
		m.busy = true
		return m, m.review(m.pending[m.cursor].ID, actionConfirm)
	case key.Matches(msg, m.keymap.Dismiss):
		m.busy = true
		return m, m.review(m.pending[m.cursor].ID, actionDismiss)
	case key.Matches(msg, m.keymap.Skip):
		m.status = fmt.Sprintf("Skipped %s", m.pending[m.cursor].DisplayName)
		m.summary.Skipped++
		return m.remove(m.pending[m.cursor].ID)
	}

	return m, nil
}

func (m Model) handleReviewed(msg reviewedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.lastError = msg.err
		m.status = ""
		return m, nil
	}
	m.lastError = nil

	name := m.displayName(msg.id)
	switch msg.action {
	case actionConfirm:
		m.summary.Confirmed++
		m.status = fmt.Sprintf("Confirmed %s as recurring rule #%d", name, msg.ruleID)
	case actionDismiss:
		m.summary.Dismissed++
		m.status = fmt.Sprintf("Dismissed %s", name)
	}
	return m.remove(msg.id)
}

// remove drops a reviewed suggestion and quits once nothing is left.
func (m Model) remove(id int64) (tea.Model, tea.Cmd) {
	kept := make([]model.Suggestion, 0, len(m.pending))
	for _, s := range m.pending {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.pending = kept

	if m.cursor >= len(m.pending) {
		m.cursor = max(len(m.pending)-1, 0)
	}
	if len(m.pending) == 0 {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) displayName(id int64) string {
	for _, s := range m.pending {
		if s.ID == id {
			return s.DisplayName
		}
	}
	return fmt.Sprintf("suggestion %d", id)
}

// Summary reports the decisions made so far.
func (m Model) Summary() Summary {
	s := m.summary
	s.Remaining = len(m.pending)
	return s
}

// Err returns the last error the screen showed.
func (m Model) Err() error {
	return m.lastError
}

func (m Model) loadSuggestions() tea.Cmd {
	return func() tea.Msg {
		suggestions, err := m.suggestions.ListPendingSuggestions(m.ctx)
		return suggestionsLoadedMsg{suggestions: suggestions, err: err}
	}
}

func (m Model) review(id int64, a action) tea.Cmd {
	return func() tea.Msg {
		msg := reviewedMsg{id: id, action: a}
		switch a {
		case actionConfirm:
			msg.ruleID, msg.err = m.reviewer.ConfirmPattern(m.ctx, id)
		case actionDismiss:
			msg.err = m.reviewer.DismissPattern(m.ctx, id)
		}
		return msg
	}
}
