// Package world turns resolved outcomes into applied state changes.
package world

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/rules"
)

// Updater applies outcome tokens to a game state. Every change it returns
// has already been written into the state.
type Updater struct {
	logger *zap.Logger
}

// NewUpdater returns an Updater. A nil logger discards output.
func NewUpdater(logger *zap.Logger) *Updater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Updater{logger: logger}
}

// Apply emits and applies the changes caused by tokens, in token order.
// Failed actions produce nothing.
func (u *Updater) Apply(tokens []models.OutcomeToken, state *models.GameState) []models.WorldStateChange {
	var changes []models.WorldStateChange
	for _, token := range tokens {
		if !token.Succeeded() {
			continue
		}
		performer, ok := state.Player(token.PerformerID)
		if !ok {
			u.logger.Warn("outcome for unknown performer skipped", zap.String("action_id", token.ActionID))
			continue
		}
		var produced []models.WorldStateChange
		switch token.Intent {
		case models.IntentAttack, models.IntentCastSpell:
			produced = u.damage(token, state)
		case models.IntentHelp:
			produced = u.heal(token, state, performer)
		case models.IntentDialogue:
			produced = u.persuade(token, state)
		case models.IntentMove:
			produced = u.move(token, state, performer)
		case models.IntentInteract:
			produced = u.take(token, state, performer)
		case models.IntentInvestigate:
			produced = u.investigate(token, state, performer)
		}
		for _, c := range produced {
			u.logger.Debug("world change applied",
				zap.String("type", string(c.Type)),
				zap.String("target_id", c.TargetID),
				zap.String("old", c.OldValue),
				zap.String("new", c.NewValue),
			)
		}
		changes = append(changes, produced...)
	}
	return changes
}

func reason(token models.OutcomeToken, what string) string {
	return fmt.Sprintf("%s: %s", token.ActionID, what)
}

func (u *Updater) damage(token models.OutcomeToken, state *models.GameState) []models.WorldStateChange {
	if token.Damage <= 0 || token.TargetID == "" {
		return nil
	}
	if npc, ok := state.NPC(token.TargetID); ok {
		old := npc.CurrentHP
		npc.CurrentHP = max(0, old-token.Damage)
		changes := []models.WorldStateChange{healthChange(token, npc.ID, old, npc.CurrentHP, fmt.Sprintf("%s dealt %d damage", token.Intent, token.Damage))}
		if npc.CurrentHP == 0 && old > 0 {
			changes = append(changes, flagChange(state, token, "defeated:"+npc.ID, "true", npc.Name+" fell"))
			if npc.Attitude == models.Hostile && !hostilesStanding(state, npc.LocationID) {
				changes = append(changes, flagChange(state, token, models.FlagVictory, npc.LocationID, "no hostiles remain"))
			}
		}
		return changes
	}
	if target, ok := state.Player(token.TargetID); ok {
		old := target.CurrentHP
		target.CurrentHP = max(0, old-token.Damage)
		changes := []models.WorldStateChange{healthChange(token, target.ID, old, target.CurrentHP, fmt.Sprintf("%s dealt %d damage", token.Intent, token.Damage))}
		if target.CurrentHP == 0 && old > 0 {
			changes = append(changes, flagChange(state, token, "defeated:"+target.ID, "true", target.Name+" fell"))
			if !playersStanding(state) {
				changes = append(changes, flagChange(state, token, models.FlagDefeat, "true", "every player is down"))
			}
		}
		return changes
	}
	return nil
}

func (u *Updater) heal(token models.OutcomeToken, state *models.GameState, performer *models.Player) []models.WorldStateChange {
	target := performer
	if p, ok := state.Player(token.TargetID); ok {
		target = p
	}
	amount := 2 + max(0, token.Roll.Total-token.DC)
	old := target.CurrentHP
	target.CurrentHP = min(target.MaxHP, old+amount)
	if target.CurrentHP == old {
		return nil
	}
	return []models.WorldStateChange{healthChange(token, target.ID, old, target.CurrentHP, fmt.Sprintf("healed %d", target.CurrentHP-old))}
}

func (u *Updater) persuade(token models.OutcomeToken, state *models.GameState) []models.WorldStateChange {
	npc, ok := state.NPC(token.TargetID)
	if !ok {
		return nil
	}
	old := npc.Attitude
	npc.Attitude = old.Warmer()
	if npc.Attitude == old {
		return nil
	}
	return []models.WorldStateChange{{
		Type:     models.ChangeAttitude,
		TargetID: npc.ID,
		OldValue: string(old),
		NewValue: string(npc.Attitude),
		Reason:   reason(token, "won "+npc.Name+" over"),
	}}
}

func (u *Updater) move(token models.OutcomeToken, state *models.GameState, performer *models.Player) []models.WorldStateChange {
	dest := FindDestination(state, performer, token.Description)
	if dest == "" {
		return nil
	}
	old := performer.LocationID
	performer.LocationID = dest
	return []models.WorldStateChange{{
		Type:     models.ChangeLocation,
		TargetID: performer.ID,
		OldValue: old,
		NewValue: dest,
		Reason:   reason(token, "travelled"),
	}}
}

func (u *Updater) take(token models.OutcomeToken, state *models.GameState, performer *models.Player) []models.WorldStateChange {
	loc, ok := state.Location(performer.LocationID)
	if !ok {
		return nil
	}
	idx := FindItem(loc.Items, token.Description)
	if idx < 0 {
		return nil
	}
	item := loc.Items[idx]
	old := strings.Join(performer.Inventory, ", ")
	loc.Items = slices.Delete(loc.Items, idx, idx+1)
	performer.Inventory = append(performer.Inventory, item)
	return []models.WorldStateChange{{
		Type:     models.ChangeInventory,
		TargetID: performer.ID,
		OldValue: old,
		NewValue: strings.Join(performer.Inventory, ", "),
		Reason:   reason(token, "picked up "+item),
	}}
}

func (u *Updater) investigate(token models.OutcomeToken, state *models.GameState, performer *models.Player) []models.WorldStateChange {
	loc, ok := state.Location(performer.LocationID)
	if !ok {
		return nil
	}
	for i, clue := range loc.Clues {
		key := ClueFlag(loc.ID, i)
		if _, found := state.Flags[key]; found {
			continue
		}
		return []models.WorldStateChange{flagChange(state, token, key, clue, "discovered a clue")}
	}
	return nil
}

// ClueFlag names the flag recording that a location's i-th clue was found.
func ClueFlag(locationID string, i int) string {
	return "clue:" + locationID + ":" + strconv.Itoa(i)
}

// FindDestination returns the connected location the description names,
// or "" when it names none.
func FindDestination(state *models.GameState, performer *models.Player, description string) string {
	here, ok := state.Location(performer.LocationID)
	if !ok {
		return ""
	}
	bestID, best := "", 0
	for _, id := range here.ConnectedIDs {
		loc, ok := state.Location(id)
		if !ok {
			continue
		}
		if score := rules.Mentions(description, loc.Name); score > best {
			bestID, best = id, score
		}
	}
	return bestID
}

// FindItem returns the index of the item named by description, or -1.
func FindItem(items []string, description string) int {
	best, bestScore := -1, 0
	for i, item := range items {
		if score := rules.Mentions(description, item); score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

func healthChange(token models.OutcomeToken, target string, old, updated int, what string) models.WorldStateChange {
	return models.WorldStateChange{
		Type:     models.ChangeHealth,
		TargetID: target,
		OldValue: strconv.Itoa(old),
		NewValue: strconv.Itoa(updated),
		Reason:   reason(token, what),
	}
}

func flagChange(state *models.GameState, token models.OutcomeToken, key, value, what string) models.WorldStateChange {
	old := state.SetFlag(key, value)
	return models.WorldStateChange{
		Type:     models.ChangeFlag,
		TargetID: key,
		OldValue: old,
		NewValue: value,
		Reason:   reason(token, what),
	}
}

func hostilesStanding(state *models.GameState, locationID string) bool {
	for _, npc := range state.NPCsAt(locationID) {
		if npc.Attitude == models.Hostile && npc.CurrentHP > 0 {
			return true
		}
	}
	return false
}

func playersStanding(state *models.GameState) bool {
	for _, p := range state.Players {
		if p.CurrentHP > 0 {
			return true
		}
	}
	return false
}
