package rules

import (
	"slices"
	"strings"

	"github.com/tatianab/dungeon-master/internal/models"
)

var stopWords = map[string]bool{"the": true, "of": true, "and": true, "a": true, "an": true, "to": true, "in": true, "at": true}

// Mentions reports how strongly description refers to name: 2 for the full
// name, 1 for any significant word of it, 0 for none.
func Mentions(description, name string) int {
	desc := strings.ToLower(description)
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return 0
	}
	if strings.Contains(desc, name) {
		return 2
	}
	words := Words(desc)
	for _, w := range Words(name) {
		if len(w) > 2 && !stopWords[w] && slices.Contains(words, w) {
			return 1
		}
	}
	return 0
}

// FindTarget picks who an action is aimed at: an NPC sharing the
// performer's location, else another player, preferring full-name
// mentions. It returns "" when nobody is named.
func FindTarget(state *models.GameState, performer *models.Player, description string) string {
	bestID, best := "", 0
	for _, npc := range state.NPCsAt(performer.LocationID) {
		if score := Mentions(description, npc.Name); score > best {
			bestID, best = npc.ID, score
		}
	}
	if best == 2 {
		return bestID
	}
	for _, p := range state.Players {
		if p.ID == performer.ID {
			continue
		}
		if score := Mentions(description, p.Name); score > best {
			bestID, best = p.ID, score
		}
	}
	return bestID
}
