package models

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrNotResumable marks a state that has to go through initialization.
var ErrNotResumable = errors.New("state is not resumable")

// ValidationError lists the parts of a state that are missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrNotResumable, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrNotResumable }

// Validate checks that the world, players and narrative are all present.
func (s *GameState) Validate() error {
	if s == nil {
		return &ValidationError{Missing: []string{"state"}}
	}
	var missing []string
	if len(s.World.Locations) == 0 {
		missing = append(missing, "world.locations")
	}
	if len(s.World.Regions) == 0 {
		missing = append(missing, "world.regions")
	}
	if len(s.Players) == 0 {
		missing = append(missing, "players")
	}
	if s.Narrative == nil || strings.TrimSpace(s.Narrative.Title) == "" {
		missing = append(missing, "narrative")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Resumable reports whether the state can skip initialization.
func (s *GameState) Resumable() bool {
	return s.Validate() == nil
}

// Player returns the player with the given id.
func (s *GameState) Player(id string) (*Player, bool) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i], true
		}
	}
	return nil, false
}

// NPC returns the NPC with the given id.
func (s *GameState) NPC(id string) (*NPC, bool) {
	for i := range s.World.NPCs {
		if s.World.NPCs[i].ID == id {
			return &s.World.NPCs[i], true
		}
	}
	return nil, false
}

// Location returns the location with the given id.
func (s *GameState) Location(id string) (*Location, bool) {
	for i := range s.World.Locations {
		if s.World.Locations[i].ID == id {
			return &s.World.Locations[i], true
		}
	}
	return nil, false
}

// ActivePlayer is the player whose input drives the turn: the first one.
func (s *GameState) ActivePlayer() (*Player, bool) {
	if len(s.Players) == 0 {
		return nil, false
	}
	return &s.Players[0], true
}

// NPCsAt returns the NPCs currently standing in a location.
func (s *GameState) NPCsAt(locationID string) []*NPC {
	var out []*NPC
	for i := range s.World.NPCs {
		if s.World.NPCs[i].LocationID == locationID {
			out = append(out, &s.World.NPCs[i])
		}
	}
	return out
}

// SetFlag records a named flag, allocating the map on first use.
func (s *GameState) SetFlag(key, value string) (old string) {
	if s.Flags == nil {
		s.Flags = make(map[string]string)
	}
	old = s.Flags[key]
	s.Flags[key] = value
	return old
}

// ClearTurnScratch resets the per-turn fields before a new turn starts.
func (s *GameState) ClearTurnScratch() {
	s.CurrentAction = ""
	s.OutcomeTokens = nil
	s.LastWorldChanges = nil
	s.ActionSuggestions = nil
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.Setting.PlayerConcepts = slices.Clone(s.Setting.PlayerConcepts)
	if s.Narrative != nil {
		n := *s.Narrative
		n.Themes = slices.Clone(n.Themes)
		n.Scenes = slices.Clone(n.Scenes)
		out.Narrative = &n
	}
	out.World = s.World.Clone()
	out.Players = make([]Player, len(s.Players))
	for i, p := range s.Players {
		p.Inventory = slices.Clone(p.Inventory)
		out.Players[i] = p
	}
	if s.Players == nil {
		out.Players = nil
	}
	out.Messages = slices.Clone(s.Messages)
	out.Flags = maps.Clone(s.Flags)
	out.OutcomeTokens = make([]OutcomeToken, len(s.OutcomeTokens))
	for i, t := range s.OutcomeTokens {
		out.OutcomeTokens[i] = t.Clone()
	}
	if s.OutcomeTokens == nil {
		out.OutcomeTokens = nil
	}
	out.LastWorldChanges = slices.Clone(s.LastWorldChanges)
	out.ActionSuggestions = slices.Clone(s.ActionSuggestions)
	return &out
}

// Clone returns a deep copy of the world.
func (w World) Clone() World {
	out := w
	if w.Regions != nil {
		out.Regions = make([]Region, len(w.Regions))
		for i, r := range w.Regions {
			r.Factions = slices.Clone(r.Factions)
			r.Landmarks = slices.Clone(r.Landmarks)
			out.Regions[i] = r
		}
	}
	if w.Locations != nil {
		out.Locations = make([]Location, len(w.Locations))
		for i, l := range w.Locations {
			l.ConnectedIDs = slices.Clone(l.ConnectedIDs)
			l.NPCIDs = slices.Clone(l.NPCIDs)
			l.Items = slices.Clone(l.Items)
			l.Clues = slices.Clone(l.Clues)
			out.Locations[i] = l
		}
	}
	out.NPCs = slices.Clone(w.NPCs)
	return out
}

// Clone returns a copy whose roll slice is not shared.
func (t OutcomeToken) Clone() OutcomeToken {
	t.Roll.Rolls = slices.Clone(t.Roll.Rolls)
	return t
}
