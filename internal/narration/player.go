package narration

import (
	"context"
	"strings"

	"github.com/tatianab/dungeon-master/internal/memory"
)

// AutoPlayer picks actions for unattended play. With a Completer it asks
// the model; otherwise, or when the model fails, it takes the first
// suggestion.
type AutoPlayer struct {
	completer Completer
}

// NewAutoPlayer returns an AutoPlayer; c may be nil.
func NewAutoPlayer(c Completer) *AutoPlayer {
	return &AutoPlayer{completer: c}
}

// NextAction returns the action to submit next.
func (p *AutoPlayer) NextAction(ctx context.Context, summary StateSummary, recent []memory.EventNode, suggestions []string) string {
	fallback := "look around"
	if len(suggestions) > 0 {
		fallback = suggestions[0]
	}
	if p.completer == nil {
		return fallback
	}
	prompt, err := render("player_action.txt", struct {
		Summary     StateSummary
		Recent      []memory.EventNode
		Suggestions []string
	}{summary, recent, suggestions})
	if err != nil {
		return fallback
	}
	text, err := p.completer.Complete(ctx, prompt)
	if err != nil {
		return fallback
	}
	action, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	action = strings.TrimSpace(strings.Trim(strings.TrimSpace(action), `"`))
	if action == "" {
		return fallback
	}
	return action
}
