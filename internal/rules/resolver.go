package rules

import (
	"fmt"
	"strings"

	"github.com/tatianab/dungeon-master/internal/dice"
	"github.com/tatianab/dungeon-master/internal/models"
)

// ResolutionError means an action could not be resolved at all. The turn
// that produced it must be abandoned.
type ResolutionError struct {
	PerformerID string
	Reason      string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve action for performer %q: %s", e.PerformerID, e.Reason)
}

// Action is everything the resolver needs to know about one attempt.
type Action struct {
	ID           string
	PerformerID  string
	TargetID     string
	Description  string
	Intent       models.Intent
	Advantage    bool
	Disadvantage bool
}

// ActionID formats the id of the index-th action in a turn.
func ActionID(turn, index int) string {
	return fmt.Sprintf("action_%d_%d", turn, index)
}

// Resolver rolls actions against the difficulty table.
type Resolver struct {
	roller   *dice.Roller
	fallback models.Ability
}

// NewResolver returns a resolver using roller. fallback is the ability
// for intents without a dedicated one.
func NewResolver(roller *dice.Roller, fallback models.Ability) *Resolver {
	if roller == nil {
		roller = dice.NewRoller(nil)
	}
	if fallback == "" {
		fallback = models.Dexterity
	}
	return &Resolver{roller: roller, fallback: fallback}
}

// Resolve produces the outcome token for an action taken by a player in
// state. An unknown performer or a performer without stats is a
// *ResolutionError.
func (r *Resolver) Resolve(state *models.GameState, action Action) (models.OutcomeToken, error) {
	token := models.OutcomeToken{
		ActionID:    action.ID,
		PerformerID: action.PerformerID,
		TargetID:    action.TargetID,
		Description: action.Description,
		Intent:      action.Intent,
		Status:      models.StatusPending,
	}

	if strings.TrimSpace(action.PerformerID) == "" {
		return token, &ResolutionError{Reason: "no performer"}
	}
	performer, ok := state.Player(action.PerformerID)
	if !ok {
		return token, &ResolutionError{PerformerID: action.PerformerID, Reason: "unknown performer"}
	}
	if performer.Stats.IsZero() {
		return token, &ResolutionError{PerformerID: action.PerformerID, Reason: "performer has no ability scores"}
	}

	ability := AbilityFor(action.Intent, r.fallback)
	score, ok := performer.Stats.Score(ability)
	if !ok {
		return token, &ResolutionError{PerformerID: action.PerformerID, Reason: fmt.Sprintf("unknown ability %q", ability)}
	}
	token.Ability = ability
	token.Status = models.StatusValidated

	dc := DifficultyClass(action.Intent)
	roll := r.roller.Roll(models.D20, models.Modifier(score), action.Advantage, action.Disadvantage)

	token.Roll = roll
	token.DC = dc
	token.MeetsDC = roll.Total >= dc
	token.Effectiveness = effectiveness(roll.Total, dc)
	token.Damage = Damage(action.Intent, roll.Total, dc)

	switch {
	case roll.Natural == int(models.D20):
		token.Status = models.StatusCriticalHit
	case roll.Natural == 1:
		token.Status = models.StatusCriticalFail
	case token.MeetsDC:
		token.Status = models.StatusResolved
	default:
		token.Status = models.StatusFailed
	}
	token.Summary = Summarize(token)
	return token, nil
}

func effectiveness(total, dc int) float64 {
	if dc <= 0 {
		return 1.0
	}
	e := float64(total) / float64(dc)
	return min(1.0, max(0.0, e))
}

// Summarize renders the mechanical result of a token for narration context.
func Summarize(t models.OutcomeToken) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s): rolled %s %d %+d = %d vs DC %d", t.Intent, t.Ability, t.Roll.Die, t.Roll.Natural, t.Roll.Modifier, t.Roll.Total, t.DC)
	if len(t.Roll.Rolls) > 1 {
		fmt.Fprintf(&b, " from %v", t.Roll.Rolls)
	}
	switch {
	case t.Status == models.StatusCriticalHit:
		b.WriteString(", critical hit")
	case t.Status == models.StatusCriticalFail:
		b.WriteString(", critical fail")
	}
	if t.MeetsDC {
		b.WriteString(", success")
	} else {
		b.WriteString(", failure")
	}
	if t.Damage > 0 {
		fmt.Fprintf(&b, ", %d damage", t.Damage)
	}
	return b.String()
}
