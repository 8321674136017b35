// Package narration is the boundary to whatever writes the story prose:
// a procedural narrator, Gemini, or any OpenAI-compatible model.
package narration

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/dungeon-master/internal/memory"
	"github.com/tatianab/dungeon-master/internal/models"
)

// Kind says what the narration is for.
type Kind string

const (
	KindOpening  Kind = "opening"
	KindAction   Kind = "action"
	KindQuestion Kind = "question"
	KindFarewell Kind = "farewell"
)

// NeutralNarrative is used when no narrator produced a usable response.
const NeutralNarrative = "The moment passes quietly. The world waits for your next move."

// DefaultSuggestions accompany NeutralNarrative.
var DefaultSuggestions = []string{"look around", "wait", "ask for clarification"}

// Request is what a narrator sees of the game.
type Request struct {
	Kind       Kind
	SessionID  string
	Input      string
	Summary    StateSummary
	Outcomes   []models.OutcomeToken
	Changes    []models.WorldStateChange
	Recent     []memory.EventNode
	Pacing     string
	Transition string
}

// Response keeps prose and suggestions apart; callers never parse one out
// of the other.
type Response struct {
	Narrative   string
	Suggestions []string
	// Fallback is set when the neutral default replaced a failed narration.
	Fallback bool
}

// Gateway produces narration for a request.
type Gateway interface {
	Narrate(ctx context.Context, req Request) (Response, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req Request) (Response, error)

// Narrate calls f.
func (f GatewayFunc) Narrate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Fallback returns the neutral response.
func Fallback() Response {
	return Response{
		Narrative:   NeutralNarrative,
		Suggestions: append([]string(nil), DefaultSuggestions...),
		Fallback:    true,
	}
}

// PlayerSummary is a one-line view of a party member.
type PlayerSummary struct {
	Name  string
	Class string
	HP    string
}

// LocationSummary describes where the party stands.
type LocationSummary struct {
	Name        string
	Description string
	Exits       []string
	NPCs        []string
	Items       []string
}

// StateSummary is the slice of GameState narration needs.
type StateSummary struct {
	Title    string
	Premise  string
	World    string
	Scene    string
	Location LocationSummary
	Party    []PlayerSummary
}

// Summarize extracts a StateSummary from the state around the active player.
func Summarize(state *models.GameState) StateSummary {
	var s StateSummary
	if state == nil {
		return s
	}
	if state.Narrative != nil {
		s.Title = state.Narrative.Title
		s.Premise = state.Narrative.Premise
	}
	s.World = state.World.Name
	s.Scene = state.Metadata.SceneID
	for _, p := range state.Players {
		s.Party = append(s.Party, PlayerSummary{Name: p.Name, Class: p.Class, HP: fmt.Sprintf("%d/%d", p.CurrentHP, p.MaxHP)})
	}

	active, ok := state.ActivePlayer()
	if !ok {
		return s
	}
	loc, ok := state.Location(active.LocationID)
	if !ok {
		return s
	}
	s.Location = LocationSummary{
		Name:        loc.Name,
		Description: loc.Description,
		Items:       append([]string(nil), loc.Items...),
	}
	for _, id := range loc.ConnectedIDs {
		if exit, ok := state.Location(id); ok {
			s.Location.Exits = append(s.Location.Exits, exit.Name)
		}
	}
	for _, npc := range state.NPCsAt(loc.ID) {
		status := string(npc.Attitude)
		if npc.CurrentHP == 0 && npc.MaxHP > 0 {
			status = "fallen"
		}
		s.Location.NPCs = append(s.Location.NPCs, fmt.Sprintf("%s (%s)", npc.Name, status))
	}
	return s
}

// CleanSuggestions trims, de-duplicates and caps suggestions at three.
func CleanSuggestions(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "-*0123456789.) "))
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == 3 {
			break
		}
	}
	return out
}
