package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleState() *GameState {
	return &GameState{
		Setting:   DefaultSetting(),
		Narrative: &Narrative{Title: "The Lost Temple of Azurath", Scenes: []string{"gate", "nave"}},
		World: World{
			Name:    "The Shadow Realm",
			Regions: []Region{{Name: "Ashen Vale", Factions: []string{"Cult"}}},
			Locations: []Location{
				{ID: "loc_gate", Name: "Temple Gate", ConnectedIDs: []string{"loc_nave"}, Items: []string{"torch"}},
				{ID: "loc_nave", Name: "Sunken Nave", ConnectedIDs: []string{"loc_gate"}},
			},
			NPCs: []NPC{{ID: "npc_goblin", Name: "Goblin", LocationID: "loc_gate", Attitude: Hostile, CurrentHP: 20, MaxHP: 20}},
		},
		Players: []Player{{
			ID: "player_1", Name: "Vex", Class: "Rogue",
			Stats:     Stats{Strength: 16, Dexterity: 14, Constitution: 12, Intelligence: 10, Wisdom: 8, Charisma: 13},
			CurrentHP: 10, MaxHP: 10, Inventory: []string{"dagger"}, LocationID: "loc_gate",
		}},
		Metadata: Metadata{SessionID: "s1", Turn: 3},
		Flags:    map[string]string{"door": "open"},
	}
}

func TestGameStateYAML(t *testing.T) {
	state := sampleState()

	data, err := yaml.Marshal(state)
	require.NoError(t, err)

	var decoded GameState
	require.NoError(t, yaml.Unmarshal(data, &decoded))

	assert.Equal(t, state.Narrative.Title, decoded.Narrative.Title)
	assert.Equal(t, state.Players[0].Stats, decoded.Players[0].Stats)
	assert.Equal(t, state.World.Locations, decoded.World.Locations)
	assert.True(t, decoded.Resumable())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GameState)
		missing []string
	}{
		{name: "complete", mutate: func(*GameState) {}},
		{name: "no locations", mutate: func(s *GameState) { s.World.Locations = nil }, missing: []string{"world.locations"}},
		{name: "no regions", mutate: func(s *GameState) { s.World.Regions = nil }, missing: []string{"world.regions"}},
		{name: "no players", mutate: func(s *GameState) { s.Players = nil }, missing: []string{"players"}},
		{name: "no narrative", mutate: func(s *GameState) { s.Narrative = nil }, missing: []string{"narrative"}},
		{name: "blank narrative", mutate: func(s *GameState) { s.Narrative = &Narrative{} }, missing: []string{"narrative"}},
		{
			name:    "empty",
			mutate:  func(s *GameState) { *s = GameState{} },
			missing: []string{"world.locations", "world.regions", "players", "narrative"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := sampleState()
			tt.mutate(state)

			err := state.Validate()
			if tt.missing == nil {
				assert.NoError(t, err)
				assert.True(t, state.Resumable())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNotResumable))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.missing, verr.Missing)
			assert.False(t, state.Resumable())
		})
	}
}

func TestNilStateIsNotResumable(t *testing.T) {
	var state *GameState
	assert.False(t, state.Resumable())
}

func TestCloneIsDeep(t *testing.T) {
	state := sampleState()
	state.OutcomeTokens = []OutcomeToken{{ActionID: "action_1_0", Roll: RollResult{Rolls: []int{7, 12}}}}

	clone := state.Clone()
	clone.Players[0].Inventory[0] = "sword"
	clone.Players[0].CurrentHP = 1
	clone.World.NPCs[0].CurrentHP = 0
	clone.World.Locations[0].Items = append(clone.World.Locations[0].Items[:0], "rope")
	clone.Narrative.Title = "Other"
	clone.Flags["door"] = "closed"
	clone.OutcomeTokens[0].Roll.Rolls[0] = 20

	assert.Equal(t, "dagger", state.Players[0].Inventory[0])
	assert.Equal(t, 10, state.Players[0].CurrentHP)
	assert.Equal(t, 20, state.World.NPCs[0].CurrentHP)
	assert.Equal(t, []string{"torch"}, state.World.Locations[0].Items)
	assert.Equal(t, "The Lost Temple of Azurath", state.Narrative.Title)
	assert.Equal(t, "open", state.Flags["door"])
	assert.Equal(t, 7, state.OutcomeTokens[0].Roll.Rolls[0])
}

func TestModifier(t *testing.T) {
	cases := map[int]int{1: -5, 3: -4, 8: -1, 9: -1, 10: 0, 11: 0, 12: 1, 16: 3, 20: 5}
	for score, want := range cases {
		assert.Equal(t, want, Modifier(score), "score %d", score)
	}
}

func TestAttitudeWarmer(t *testing.T) {
	assert.Equal(t, Wary, Hostile.Warmer())
	assert.Equal(t, Friendly, Neutral.Warmer())
	assert.Equal(t, Allied, Allied.Warmer())
}

func TestLookups(t *testing.T) {
	state := sampleState()

	p, ok := state.Player("player_1")
	require.True(t, ok)
	p.CurrentHP = 4
	assert.Equal(t, 4, state.Players[0].CurrentHP)

	_, ok = state.Player("nobody")
	assert.False(t, ok)

	assert.Len(t, state.NPCsAt("loc_gate"), 1)
	assert.Empty(t, state.NPCsAt("loc_nave"))

	score, ok := state.Players[0].Stats.Score(Strength)
	require.True(t, ok)
	assert.Equal(t, 16, score)
}
