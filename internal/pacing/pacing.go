// Package pacing tracks scene tension and decides when a scene ends.
package pacing

import (
	"fmt"
	"slices"

	"github.com/tatianab/dungeon-master/internal/models"
)

// TurnType buckets turns for the per-scene counters.
type TurnType string

const (
	TurnCombat      TurnType = "combat"
	TurnDialogue    TurnType = "dialogue"
	TurnExploration TurnType = "exploration"
)

// TriggerType says why a scene transition was (or was not) triggered.
type TriggerType string

const (
	TriggerResolution TriggerType = "resolution"
	TriggerPacing     TriggerType = "pacing"
	TriggerVictory    TriggerType = "victory"
	TriggerFailure    TriggerType = "failure"
)

// Scene ids used when the narrative plan has nothing better.
const (
	EpilogueScene  = "epilogue"
	RecoveryScene  = "recovery"
	InterludeScene = "interlude"
)

// Trigger is the per-turn verdict on whether the scene ends now.
type Trigger struct {
	Turn            int         `yaml:"turn" json:"turn"`
	Type            TriggerType `yaml:"type" json:"type"`
	ConditionMet    bool        `yaml:"condition_met" json:"condition_met"`
	Reason          string      `yaml:"reason" json:"reason"`
	NextSceneID     string      `yaml:"next_scene_id" json:"next_scene_id"`
	FallbackSceneID string      `yaml:"fallback_scene_id" json:"fallback_scene_id"`
}

// Metrics is the pacing state carried between turns.
type Metrics struct {
	TurnsInScene     int       `yaml:"turns_in_scene" json:"turns_in_scene"`
	MaxTurnsPerScene int       `yaml:"max_turns_per_scene" json:"max_turns_per_scene"`
	BaseTension      float64   `yaml:"base_tension" json:"base_tension"`
	CurrentTension   float64   `yaml:"current_tension" json:"current_tension"`
	Trajectory       []float64 `yaml:"trajectory" json:"trajectory"`
	CombatTurns      int       `yaml:"combat_turns" json:"combat_turns"`
	DialogueTurns    int       `yaml:"dialogue_turns" json:"dialogue_turns"`
	ExplorationTurns int       `yaml:"exploration_turns" json:"exploration_turns"`
	LowStakesStreak  int       `yaml:"low_stakes_streak" json:"low_stakes_streak"`
	LowTensionStreak int       `yaml:"low_tension_streak" json:"low_tension_streak"`
	SceneIndex       int       `yaml:"scene_index" json:"scene_index"`
	Triggers         []Trigger `yaml:"triggers" json:"triggers"`
}

// Clone returns a copy that shares no slices with m.
func (m Metrics) Clone() Metrics {
	m.Trajectory = slices.Clone(m.Trajectory)
	m.Triggers = slices.Clone(m.Triggers)
	return m
}

// Latest returns the authoritative trigger, if any turn has run.
func (m Metrics) Latest() (Trigger, bool) {
	if len(m.Triggers) == 0 {
		return Trigger{}, false
	}
	return m.Triggers[len(m.Triggers)-1], true
}

// Config tunes the controller.
type Config struct {
	MaxTurnsPerScene    int
	BaseTension         float64
	LowTensionThreshold float64
	LowTensionTurns     int
}

// DefaultConfig returns the stock pacing tuning.
func DefaultConfig() Config {
	return Config{
		MaxTurnsPerScene:    10,
		BaseTension:         0.5,
		LowTensionThreshold: 0.2,
		LowTensionTurns:     3,
	}
}

const (
	criticalDelta   = 0.20
	combatHitDelta  = 0.10
	combatMissDelta = 0.05
	knockoutDelta   = 0.15
	lowStakesStep   = 0.05
	lowStakesCap    = 3
)

// Controller updates Metrics once per turn.
type Controller struct {
	cfg Config
}

// NewController builds a controller from cfg. A zero Config means
// DefaultConfig. Otherwise non-positive turn counts and negative tension
// values take their defaults; a zero tension value is used as given.
func NewController(cfg Config) *Controller {
	def := DefaultConfig()
	if cfg == (Config{}) {
		return &Controller{cfg: def}
	}
	if cfg.MaxTurnsPerScene <= 0 {
		cfg.MaxTurnsPerScene = def.MaxTurnsPerScene
	}
	if cfg.BaseTension < 0 {
		cfg.BaseTension = def.BaseTension
	}
	if cfg.LowTensionThreshold < 0 {
		cfg.LowTensionThreshold = def.LowTensionThreshold
	}
	if cfg.LowTensionTurns <= 0 {
		cfg.LowTensionTurns = def.LowTensionTurns
	}
	cfg.BaseTension = clamp(cfg.BaseTension)
	cfg.LowTensionThreshold = clamp(cfg.LowTensionThreshold)
	return &Controller{cfg: cfg}
}

// NewMetrics returns metrics for the first scene of a session.
func (c *Controller) NewMetrics() Metrics {
	return Metrics{
		MaxTurnsPerScene: c.cfg.MaxTurnsPerScene,
		BaseTension:      c.cfg.BaseTension,
		CurrentTension:   c.cfg.BaseTension,
	}
}

// Classify buckets the turn's outcome. A nil outcome, as for a question,
// counts as exploration.
func Classify(latest *models.OutcomeToken) TurnType {
	if latest == nil {
		return TurnExploration
	}
	switch latest.Intent {
	case models.IntentAttack, models.IntentCastSpell, models.IntentDefend, models.IntentDodge, models.IntentCounter:
		return TurnCombat
	case models.IntentDialogue:
		return TurnDialogue
	}
	return TurnExploration
}

// Update advances m by one turn. state supplies the turn's world changes
// and narrative plan; latest may be nil. The returned trigger has already
// been appended to the returned metrics, and when it fires the per-scene
// counters are reset for the next scene.
func (c *Controller) Update(m Metrics, state *models.GameState, latest *models.OutcomeToken) (Metrics, Trigger) {
	m = m.Clone()
	if m.MaxTurnsPerScene <= 0 {
		m.MaxTurnsPerScene = c.cfg.MaxTurnsPerScene
	}
	m.TurnsInScene++

	kind := Classify(latest)
	switch kind {
	case TurnCombat:
		m.CombatTurns++
	case TurnDialogue:
		m.DialogueTurns++
	default:
		m.ExplorationTurns++
	}

	delta := 0.0
	switch {
	case latest != nil && latest.Status.Critical():
		delta = criticalDelta
		m.LowStakesStreak = 0
	case kind == TurnCombat:
		delta = combatMissDelta
		if latest.Succeeded() {
			delta = combatHitDelta
		}
		m.LowStakesStreak = 0
	default:
		m.LowStakesStreak++
		delta = -lowStakesStep * float64(min(m.LowStakesStreak, lowStakesCap))
	}

	victory, defeat, knockout := scanChanges(state.LastWorldChanges)
	if knockout {
		delta += knockoutDelta
	}
	m.CurrentTension = clamp(m.CurrentTension + delta)
	m.Trajectory = append(m.Trajectory, m.CurrentTension)

	if m.CurrentTension < c.cfg.LowTensionThreshold {
		m.LowTensionStreak++
	} else {
		m.LowTensionStreak = 0
	}

	trigger := Trigger{
		Turn:            state.Metadata.Turn,
		Type:            TriggerResolution,
		Reason:          "scene continues",
		NextSceneID:     nextScene(state, m.SceneIndex),
		FallbackSceneID: InterludeScene,
	}
	switch {
	case victory:
		trigger.Type, trigger.ConditionMet, trigger.Reason = TriggerVictory, true, "victory flag raised"
	case defeat:
		trigger.Type, trigger.ConditionMet, trigger.Reason = TriggerFailure, true, "defeat flag raised"
		trigger.NextSceneID = RecoveryScene
	case m.TurnsInScene >= m.MaxTurnsPerScene:
		trigger.Type, trigger.ConditionMet = TriggerPacing, true
		trigger.Reason = fmt.Sprintf("scene reached %d turns", m.TurnsInScene)
	case m.LowTensionStreak >= c.cfg.LowTensionTurns:
		trigger.Type, trigger.ConditionMet = TriggerPacing, true
		trigger.Reason = fmt.Sprintf("tension below %.2f for %d turns", c.cfg.LowTensionThreshold, m.LowTensionStreak)
	}

	m.Triggers = append(m.Triggers, trigger)
	if trigger.ConditionMet {
		m.SceneIndex++
		m.TurnsInScene = 0
		m.CurrentTension = m.BaseTension
		m.CombatTurns, m.DialogueTurns, m.ExplorationTurns = 0, 0, 0
		m.LowStakesStreak, m.LowTensionStreak = 0, 0
	}
	return m, trigger
}

func scanChanges(changes []models.WorldStateChange) (victory, defeat, knockout bool) {
	for _, c := range changes {
		switch {
		case c.Type == models.ChangeFlag && c.TargetID == models.FlagVictory:
			victory = true
		case c.Type == models.ChangeFlag && c.TargetID == models.FlagDefeat:
			defeat = true
		case c.Type == models.ChangeHealth && c.NewValue == "0" && c.OldValue != "0":
			knockout = true
		}
	}
	return victory, defeat, knockout
}

func nextScene(state *models.GameState, index int) string {
	if state.Narrative != nil && index+1 < len(state.Narrative.Scenes) {
		return state.Narrative.Scenes[index+1]
	}
	return EpilogueScene
}

func clamp(v float64) float64 {
	return min(1.0, max(0.0, v))
}

// Band names the pacing a narrator should aim for at a tension level.
func Band(tension float64) string {
	switch {
	case tension > 0.8:
		return "HIGH_INTENSITY"
	case tension > 0.6:
		return "ESCALATING"
	case tension > 0.4:
		return "NORMAL"
	case tension > 0.2:
		return "DESCENDING"
	}
	return "LOW_INTENSITY"
}
