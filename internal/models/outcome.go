package models

import "fmt"

// Intent is the closed set of things a player can try to do.
type Intent string

const (
	IntentAttack      Intent = "attack"
	IntentDefend      Intent = "defend"
	IntentCastSpell   Intent = "cast_spell"
	IntentSkillCheck  Intent = "skill_check"
	IntentInteract    Intent = "interact"
	IntentDialogue    Intent = "dialogue"
	IntentInvestigate Intent = "investigate"
	IntentMove        Intent = "move"
	IntentHelp        Intent = "help"
	IntentDodge       Intent = "dodge"
	IntentCounter     Intent = "counter"
	IntentUnknown     Intent = "unknown"
)

// ResolutionStatus tracks a token from creation to its final verdict.
type ResolutionStatus string

const (
	StatusPending      ResolutionStatus = "pending"
	StatusValidated    ResolutionStatus = "validated"
	StatusResolved     ResolutionStatus = "resolved"
	StatusFailed       ResolutionStatus = "failed"
	StatusCriticalHit  ResolutionStatus = "critical_hit"
	StatusCriticalFail ResolutionStatus = "critical_fail"
)

// Critical reports whether the status came from a natural 20 or 1.
func (s ResolutionStatus) Critical() bool {
	return s == StatusCriticalHit || s == StatusCriticalFail
}

// Die is a polyhedral die identified by its number of faces.
type Die int

const (
	D4   Die = 4
	D6   Die = 6
	D8   Die = 8
	D10  Die = 10
	D12  Die = 12
	D20  Die = 20
	D100 Die = 100
)

func (d Die) String() string {
	return fmt.Sprintf("d%d", int(d))
}

// RollResult is one resolved roll. Rolls holds every raw face; it has two
// entries only for advantage or disadvantage, where Natural is the one kept.
type RollResult struct {
	Die          Die   `yaml:"die" json:"die"`
	Rolls        []int `yaml:"rolls" json:"rolls"`
	Natural      int   `yaml:"natural" json:"natural"`
	Modifier     int   `yaml:"modifier" json:"modifier"`
	Total        int   `yaml:"total" json:"total"`
	Advantage    bool  `yaml:"advantage,omitempty" json:"advantage,omitempty"`
	Disadvantage bool  `yaml:"disadvantage,omitempty" json:"disadvantage,omitempty"`
}

// OutcomeToken is the mechanical result of a single action.
type OutcomeToken struct {
	ActionID      string           `yaml:"action_id" json:"action_id"`
	PerformerID   string           `yaml:"performer_id" json:"performer_id"`
	TargetID      string           `yaml:"target_id,omitempty" json:"target_id,omitempty"`
	Description   string           `yaml:"description" json:"description"`
	Intent        Intent           `yaml:"intent" json:"intent"`
	Status        ResolutionStatus `yaml:"status" json:"status"`
	Ability       Ability          `yaml:"ability" json:"ability"`
	Roll          RollResult       `yaml:"roll" json:"roll"`
	DC            int              `yaml:"dc" json:"dc"`
	MeetsDC       bool             `yaml:"meets_dc" json:"meets_dc"`
	Effectiveness float64          `yaml:"effectiveness" json:"effectiveness"`
	Damage        int              `yaml:"damage" json:"damage"`
	Summary       string           `yaml:"summary" json:"summary"`
}

// Succeeded reports whether the action met its DC without fumbling.
func (t OutcomeToken) Succeeded() bool {
	return t.MeetsDC && t.Status != StatusCriticalFail
}

// ChangeType is the kind of state a WorldStateChange touches.
type ChangeType string

const (
	ChangeHealth    ChangeType = "health"
	ChangeInventory ChangeType = "inventory"
	ChangeLocation  ChangeType = "location"
	ChangeAttitude  ChangeType = "attitude"
	ChangeFlag      ChangeType = "flag"
)

// Flags raised by world changes that end a scene.
const (
	FlagVictory = "victory"
	FlagDefeat  = "defeat"
)

// WorldStateChange records one applied mutation of the game state.
type WorldStateChange struct {
	Type     ChangeType `yaml:"type" json:"type"`
	TargetID string     `yaml:"target_id" json:"target_id"`
	OldValue string     `yaml:"old_value" json:"old_value"`
	NewValue string     `yaml:"new_value" json:"new_value"`
	Reason   string     `yaml:"reason" json:"reason"`
}
