package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-master/internal/models"
)

func newState() *models.GameState {
	return &models.GameState{
		World: models.World{
			Locations: []models.Location{
				{ID: "loc_gate", Name: "Temple Gate", ConnectedIDs: []string{"loc_nave"}, Items: []string{"torch", "rope"}, Clues: []string{"fresh claw marks", "a torn banner"}},
				{ID: "loc_nave", Name: "Sunken Nave", ConnectedIDs: []string{"loc_gate"}},
				{ID: "loc_vault", Name: "Hidden Vault"},
			},
			NPCs: []models.NPC{
				{ID: "npc_goblin", Name: "Goblin", LocationID: "loc_gate", Attitude: models.Hostile, CurrentHP: 20, MaxHP: 20},
				{ID: "npc_priest", Name: "Priest", LocationID: "loc_gate", Attitude: models.Wary, CurrentHP: 8, MaxHP: 8},
			},
		},
		Players: []models.Player{
			{ID: "player_1", Name: "Vex", CurrentHP: 10, MaxHP: 12, LocationID: "loc_gate"},
			{ID: "player_2", Name: "Mira", CurrentHP: 3, MaxHP: 9, LocationID: "loc_gate"},
		},
	}
}

func success(intent models.Intent, target, description string) models.OutcomeToken {
	return models.OutcomeToken{
		ActionID:    "action_1_0",
		PerformerID: "player_1",
		TargetID:    target,
		Description: description,
		Intent:      intent,
		Status:      models.StatusResolved,
		Roll:        models.RollResult{Total: 14},
		DC:          12,
		MeetsDC:     true,
	}
}

func TestAttackAppliesDamage(t *testing.T) {
	state := newState()
	token := success(models.IntentAttack, "npc_goblin", "I attack the goblin")
	token.Damage = 15

	changes := NewUpdater(nil).Apply([]models.OutcomeToken{token}, state)

	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeHealth, changes[0].Type)
	assert.Equal(t, "npc_goblin", changes[0].TargetID)
	assert.Equal(t, "20", changes[0].OldValue)
	assert.Equal(t, "5", changes[0].NewValue)
	assert.Contains(t, changes[0].Reason, "action_1_0")

	npc, _ := state.NPC("npc_goblin")
	assert.Equal(t, 5, npc.CurrentHP)
}

func TestKillingLastHostileRaisesVictory(t *testing.T) {
	state := newState()
	token := success(models.IntentCastSpell, "npc_goblin", "fireball the goblin")
	token.Damage = 30

	changes := NewUpdater(nil).Apply([]models.OutcomeToken{token}, state)

	require.Len(t, changes, 3)
	assert.Equal(t, "0", changes[0].NewValue)
	assert.Equal(t, "defeated:npc_goblin", changes[1].TargetID)
	assert.Equal(t, models.FlagVictory, changes[2].TargetID)
	assert.Equal(t, "loc_gate", state.Flags[models.FlagVictory])
}

func TestDowningEveryPlayerRaisesDefeat(t *testing.T) {
	state := newState()
	state.Players[0].CurrentHP = 0
	token := success(models.IntentAttack, "player_2", "hit Mira")
	token.Damage = 6

	changes := NewUpdater(nil).Apply([]models.OutcomeToken{token}, state)

	require.Len(t, changes, 3)
	assert.Equal(t, models.FlagDefeat, changes[2].TargetID)
	assert.Equal(t, "true", state.Flags[models.FlagDefeat])
}

func TestFailedActionsChangeNothing(t *testing.T) {
	intents := []models.Intent{models.IntentAttack, models.IntentMove, models.IntentDialogue, models.IntentInteract, models.IntentInvestigate, models.IntentHelp}
	for _, intent := range intents {
		state := newState()
		before := state.Clone()

		failed := success(intent, "npc_goblin", "go to the sunken nave and take the torch")
		failed.MeetsDC = false
		failed.Status = models.StatusFailed
		fumble := success(intent, "npc_goblin", "go to the sunken nave and take the torch")
		fumble.Status = models.StatusCriticalFail

		changes := NewUpdater(nil).Apply([]models.OutcomeToken{failed, fumble}, state)
		assert.Empty(t, changes, intent)
		assert.Equal(t, before, state, intent)
	}
}

func TestHealCapsAtMax(t *testing.T) {
	state := newState()
	token := success(models.IntentHelp, "player_2", "heal Mira")
	token.Roll.Total = 20

	changes := NewUpdater(nil).Apply([]models.OutcomeToken{token}, state)

	require.Len(t, changes, 1)
	assert.Equal(t, "3", changes[0].OldValue)
	assert.Equal(t, "9", changes[0].NewValue)
	assert.Equal(t, 9, state.Players[1].CurrentHP)
}

func TestHealSelfWhenNoTarget(t *testing.T) {
	state := newState()
	changes := NewUpdater(nil).Apply([]models.OutcomeToken{success(models.IntentHelp, "", "bandage my wounds")}, state)

	require.Len(t, changes, 1)
	assert.Equal(t, 12, state.Players[0].CurrentHP) // 10 + 2 + (14-12), capped at 12
}

func TestDialogueWarmsAttitude(t *testing.T) {
	state := newState()
	changes := NewUpdater(nil).Apply([]models.OutcomeToken{success(models.IntentDialogue, "npc_priest", "talk to the priest")}, state)

	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeAttitude, changes[0].Type)
	npc, _ := state.NPC("npc_priest")
	assert.Equal(t, models.Neutral, npc.Attitude)
}

func TestMoveToConnectedLocation(t *testing.T) {
	state := newState()
	changes := NewUpdater(nil).Apply([]models.OutcomeToken{success(models.IntentMove, "", "walk into the sunken nave")}, state)

	require.Len(t, changes, 1)
	assert.Equal(t, "loc_gate", changes[0].OldValue)
	assert.Equal(t, "loc_nave", state.Players[0].LocationID)

	// The vault is not connected to the nave.
	changes = NewUpdater(nil).Apply([]models.OutcomeToken{success(models.IntentMove, "", "go to the hidden vault")}, state)
	assert.Empty(t, changes)
	assert.Equal(t, "loc_nave", state.Players[0].LocationID)
}

func TestInteractPicksUpItem(t *testing.T) {
	state := newState()
	changes := NewUpdater(nil).Apply([]models.OutcomeToken{success(models.IntentInteract, "", "grab the rope")}, state)

	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeInventory, changes[0].Type)
	assert.Equal(t, []string{"rope"}, state.Players[0].Inventory)
	loc, _ := state.Location("loc_gate")
	assert.Equal(t, []string{"torch"}, loc.Items)
}

func TestInvestigateRevealsCluesInOrder(t *testing.T) {
	state := newState()
	u := NewUpdater(nil)
	token := success(models.IntentInvestigate, "", "search the gate")

	first := u.Apply([]models.OutcomeToken{token}, state)
	second := u.Apply([]models.OutcomeToken{token}, state)
	third := u.Apply([]models.OutcomeToken{token}, state)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Empty(t, third)
	assert.Equal(t, "fresh claw marks", state.Flags[ClueFlag("loc_gate", 0)])
	assert.Equal(t, "a torn banner", second[0].NewValue)
}
