package engine

import (
	"strings"

	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/rules"
)

// Route is the branch a turn takes after classification.
type Route string

const (
	RouteAction   Route = "action"
	RouteQuestion Route = "question"
	RouteExit     Route = "exit"
)

// IdleInput stands in for an empty submission.
const IdleInput = "look around and wait for what happens next"

var (
	exitWords     = map[string]bool{"quit": true, "exit": true, "goodbye": true, "end": true, "q": true}
	questionWords = []string{"what", "where", "who", "why", "how"}
)

// NormalizeInput trims input and substitutes IdleInput for blank text.
func NormalizeInput(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return IdleInput
	}
	return input
}

// RouteFor picks the branch for normalized player input. Attack and spell
// wording always makes an action, even when phrased as a question.
func RouteFor(input string) Route {
	text := strings.ToLower(strings.TrimSpace(input))
	if exitWords[strings.Trim(text, ".!")] {
		return RouteExit
	}
	switch rules.Classify(text) {
	case models.IntentAttack, models.IntentCastSpell:
		if !strings.HasSuffix(text, "?") {
			return RouteAction
		}
	}
	if strings.HasSuffix(text, "?") || strings.Contains(text, "tell me") {
		return RouteQuestion
	}
	words := rules.Words(text)
	if len(words) > 0 {
		for _, q := range questionWords {
			if words[0] == q {
				return RouteQuestion
			}
		}
	}
	return RouteAction
}
