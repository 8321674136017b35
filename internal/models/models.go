package models

import (
	"strings"
	"time"
)

// Ability names one of the six character abilities.
type Ability string

const (
	Strength     Ability = "STR"
	Dexterity    Ability = "DEX"
	Constitution Ability = "CON"
	Intelligence Ability = "INT"
	Wisdom       Ability = "WIS"
	Charisma     Ability = "CHA"
)

// Abilities lists every ability in sheet order.
var Abilities = []Ability{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// ParseAbility accepts the short form ("DEX", "dex") of an ability.
func ParseAbility(s string) (Ability, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, a := range Abilities {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// Stats holds raw ability scores.
type Stats struct {
	Strength     int `yaml:"str" json:"str"`
	Dexterity    int `yaml:"dex" json:"dex"`
	Constitution int `yaml:"con" json:"con"`
	Intelligence int `yaml:"int" json:"int"`
	Wisdom       int `yaml:"wis" json:"wis"`
	Charisma     int `yaml:"cha" json:"cha"`
}

// Score returns the raw score for an ability and whether it is known.
func (s Stats) Score(a Ability) (int, bool) {
	switch a {
	case Strength:
		return s.Strength, true
	case Dexterity:
		return s.Dexterity, true
	case Constitution:
		return s.Constitution, true
	case Intelligence:
		return s.Intelligence, true
	case Wisdom:
		return s.Wisdom, true
	case Charisma:
		return s.Charisma, true
	}
	return 0, false
}

// IsZero reports whether no score has been assigned.
func (s Stats) IsZero() bool {
	return s == Stats{}
}

// Modifier converts an ability score into its modifier, rounding toward
// negative infinity so that a score of 9 yields -1.
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// Player is a character sheet.
type Player struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Class      string   `yaml:"class" json:"class"`
	Race       string   `yaml:"race" json:"race"`
	Level      int      `yaml:"level" json:"level"`
	Stats      Stats    `yaml:"stats" json:"stats"`
	CurrentHP  int      `yaml:"current_hp" json:"current_hp"`
	MaxHP      int      `yaml:"max_hp" json:"max_hp"`
	ArmorClass int      `yaml:"armor_class" json:"armor_class"`
	Inventory  []string `yaml:"inventory" json:"inventory"`
	LocationID string   `yaml:"location_id" json:"location_id"`
}

// Attitude is an NPC's disposition toward the party.
type Attitude string

const (
	Hostile  Attitude = "hostile"
	Wary     Attitude = "wary"
	Neutral  Attitude = "neutral"
	Friendly Attitude = "friendly"
	Allied   Attitude = "allied"
)

var attitudeLadder = []Attitude{Hostile, Wary, Neutral, Friendly, Allied}

// Warmer returns the next friendlier attitude. Allied stays allied.
func (a Attitude) Warmer() Attitude {
	for i, step := range attitudeLadder {
		if step == a && i+1 < len(attitudeLadder) {
			return attitudeLadder[i+1]
		}
	}
	if a == "" {
		return Friendly
	}
	return a
}

// NPC is a non-player character placed in the world.
type NPC struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	LocationID  string   `yaml:"location_id" json:"location_id"`
	Attitude    Attitude `yaml:"attitude" json:"attitude"`
	CurrentHP   int      `yaml:"current_hp" json:"current_hp"`
	MaxHP       int      `yaml:"max_hp" json:"max_hp"`
}

// Location is a specific place in the world.
type Location struct {
	ID           string   `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	RegionName   string   `yaml:"region_name" json:"region_name"`
	Description  string   `yaml:"description" json:"description"`
	ConnectedIDs []string `yaml:"connected_ids" json:"connected_ids"`
	NPCIDs       []string `yaml:"npc_ids" json:"npc_ids"`
	Items        []string `yaml:"items" json:"items"`
	Clues        []string `yaml:"clues" json:"clues"`
}

// Region groups locations under shared lore.
type Region struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Factions    []string `yaml:"factions" json:"factions"`
	Landmarks   []string `yaml:"landmarks" json:"landmarks"`
	Hook        string   `yaml:"hook" json:"hook"`
}

// World is the simulated setting: regions, locations and the people in them.
type World struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description" json:"description"`
	Regions     []Region   `yaml:"regions" json:"regions"`
	Locations   []Location `yaml:"locations" json:"locations"`
	NPCs        []NPC      `yaml:"npcs" json:"npcs"`
}

// Narrative is the story plan produced once per session.
type Narrative struct {
	Title   string   `yaml:"title" json:"title"`
	Premise string   `yaml:"premise" json:"premise"`
	Hook    string   `yaml:"hook" json:"hook"`
	Themes  []string `yaml:"themes" json:"themes"`
	Scenes  []string `yaml:"scenes" json:"scenes"`
}

// Setting is what the player asked for before the world existed.
type Setting struct {
	Theme          string   `yaml:"theme" json:"theme"`
	Hint           string   `yaml:"hint" json:"hint"`
	PlayerConcepts []string `yaml:"player_concepts" json:"player_concepts"`
	Difficulty     string   `yaml:"difficulty" json:"difficulty"`
}

// DefaultSetting mirrors the setup used when a player gives no hint.
func DefaultSetting() Setting {
	return Setting{
		Theme:          "Fantasy Exploration",
		PlayerConcepts: []string{"Rogue", "Wizard", "Fighter"},
		Difficulty:     "Normal",
	}
}

// Metadata identifies the session and tracks the turn counter.
type Metadata struct {
	SessionID  string    `yaml:"session_id" json:"session_id"`
	CampaignID string    `yaml:"campaign_id" json:"campaign_id"`
	Turn       int       `yaml:"turn" json:"turn"`
	SceneID    string    `yaml:"scene_id" json:"scene_id"`
	SceneIndex int       `yaml:"scene_index" json:"scene_index"`
	StartedAt  time.Time `yaml:"started_at" json:"started_at"`
	UpdatedAt  time.Time `yaml:"updated_at" json:"updated_at"`
}

// Message roles in the game log.
const (
	RolePlayer   = "player"
	RoleNarrator = "narrator"
	RoleSystem   = "system"
)

// Message is one line of the visible game log.
type Message struct {
	Role string `yaml:"role" json:"role"`
	Turn int    `yaml:"turn" json:"turn"`
	Text string `yaml:"text" json:"text"`
}

// GameState is the document every graph node reads and writes.
type GameState struct {
	Setting   Setting           `yaml:"setting" json:"setting"`
	Narrative *Narrative        `yaml:"narrative,omitempty" json:"narrative,omitempty"`
	World     World             `yaml:"world" json:"world"`
	Players   []Player          `yaml:"players" json:"players"`
	Metadata  Metadata          `yaml:"metadata" json:"metadata"`
	Messages  []Message         `yaml:"messages" json:"messages"`
	Flags     map[string]string `yaml:"flags,omitempty" json:"flags,omitempty"`

	// Per-turn scratch, overwritten by every turn.
	CurrentAction     string             `yaml:"current_action,omitempty" json:"current_action,omitempty"`
	OutcomeTokens     []OutcomeToken     `yaml:"outcome_tokens,omitempty" json:"outcome_tokens,omitempty"`
	LastWorldChanges  []WorldStateChange `yaml:"last_world_changes,omitempty" json:"last_world_changes,omitempty"`
	ActionSuggestions []string           `yaml:"action_suggestions,omitempty" json:"action_suggestions,omitempty"`
}
