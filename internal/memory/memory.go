// Package memory keeps a session's event history: a short window of recent
// events for narration context and the full chronicle.
package memory

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/tatianab/dungeon-master/internal/models"
)

const (
	// DefaultWindow is the size of the recent-events window.
	DefaultWindow = 20
	// DefaultLookback is how many chronicle events feed narration.
	DefaultLookback = 5
)

// EventNode is one thing that happened during a turn.
type EventNode struct {
	ID           string                    `yaml:"id" json:"id"`
	Turn         int                       `yaml:"turn" json:"turn"`
	Phase        string                    `yaml:"phase" json:"phase"`
	PerformerID  string                    `yaml:"performer_id" json:"performer_id"`
	Intent       models.Intent             `yaml:"intent" json:"intent"`
	Input        string                    `yaml:"input" json:"input"`
	Outcome      *models.OutcomeToken      `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	Changes      []models.WorldStateChange `yaml:"changes,omitempty" json:"changes,omitempty"`
	NPCReactions map[string]string         `yaml:"npc_reactions,omitempty" json:"npc_reactions,omitempty"`
	SceneContext string                    `yaml:"scene_context,omitempty" json:"scene_context,omitempty"`
	Narrative    string                    `yaml:"narrative,omitempty" json:"narrative,omitempty"`
}

// EventID formats the id of the n-th event recorded in a turn.
func EventID(turn, n int) string {
	return fmt.Sprintf("evt_%d_%d", turn, n)
}

// SessionMemory is the event log of one session.
type SessionMemory struct {
	SessionID  string      `yaml:"session_id" json:"session_id"`
	CampaignID string      `yaml:"campaign_id" json:"campaign_id"`
	StartedAt  time.Time   `yaml:"started_at" json:"started_at"`
	Turn       int         `yaml:"turn" json:"turn"`
	Window     int         `yaml:"window" json:"window"`
	Recent     []EventNode `yaml:"recent_events" json:"recent_events"`
	Chronicle  []EventNode `yaml:"campaign_chronicle" json:"campaign_chronicle"`
}

// New starts an empty memory. A non-positive window uses DefaultWindow.
func New(sessionID, campaignID string, window int, now time.Time) *SessionMemory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &SessionMemory{
		SessionID:  sessionID,
		CampaignID: campaignID,
		StartedAt:  now,
		Window:     window,
	}
}

// Append records an event in the chronicle and the recent window, evicting
// the oldest recent event once the window is full.
func (m *SessionMemory) Append(e EventNode) {
	if m.Window <= 0 {
		m.Window = DefaultWindow
	}
	if e.Turn > m.Turn {
		m.Turn = e.Turn
	}
	m.Chronicle = append(m.Chronicle, e)
	m.Recent = append(m.Recent, e)
	if over := len(m.Recent) - m.Window; over > 0 {
		// Copy down once the dead prefix is as long as the window so the
		// backing array does not grow with the chronicle.
		if cap(m.Recent) > 2*m.Window {
			m.Recent = slices.Clone(m.Recent[over:])
		} else {
			m.Recent = m.Recent[over:]
		}
	}
}

// RecentEvents returns up to n of the newest events, oldest first.
func (m *SessionMemory) RecentEvents(n int) []EventNode {
	return tail(m.Recent, n)
}

// ChronicleWindow returns up to lookback of the newest chronicle events.
// The result never exceeds the recent window size, so narration context
// stays bounded however long the campaign runs.
func (m *SessionMemory) ChronicleWindow(lookback int) []EventNode {
	limit := m.Window
	if limit <= 0 {
		limit = DefaultWindow
	}
	return tail(m.Chronicle, min(lookback, limit))
}

// Clone returns a deep copy of the memory.
func (m *SessionMemory) Clone() *SessionMemory {
	if m == nil {
		return nil
	}
	out := *m
	out.Recent = cloneEvents(m.Recent)
	out.Chronicle = cloneEvents(m.Chronicle)
	return &out
}

func tail(events []EventNode, n int) []EventNode {
	if n <= 0 || len(events) == 0 {
		return nil
	}
	if n > len(events) {
		n = len(events)
	}
	return cloneEvents(events[len(events)-n:])
}

func cloneEvents(events []EventNode) []EventNode {
	if events == nil {
		return nil
	}
	out := make([]EventNode, len(events))
	for i, e := range events {
		if e.Outcome != nil {
			t := e.Outcome.Clone()
			e.Outcome = &t
		}
		e.Changes = slices.Clone(e.Changes)
		e.NPCReactions = maps.Clone(e.NPCReactions)
		out[i] = e
	}
	return out
}
