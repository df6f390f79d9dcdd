package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// RunReview shows the review screen until every suggestion is decided or the user quits.
func RunReview(ctx context.Context, suggestions SuggestionLister, reviewer PatternReviewer, opts ...tea.ProgramOption) (Summary, error) {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)

	final, err := tea.NewProgram(NewModel(ctx, suggestions, reviewer), opts...).Run()
	if err != nil {
		return Summary{}, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return Summary{}, fmt.Errorf("unexpected model type %T", final)
	}
	if m.Err() != nil {
		return m.Summary(), m.Err()
	}
	return m.Summary(), nil
}
