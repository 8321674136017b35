package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/dice"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
)

type fakeGame struct {
	inputs  []string
	setting models.Setting
}

func (f *fakeGame) Initialize(_ context.Context, _ string, setting models.Setting) (engine.TurnResult, error) {
	f.setting = setting
	return engine.TurnResult{
		Snapshot: snapshot(),
		Metrics:  engine.TurnMetrics{Narrative: "You wake in a ruined village.", Suggestions: []string{"look around", "talk to the elder"}},
	}, nil
}

func (f *fakeGame) ExecuteTurn(_ context.Context, _ string, snap checkpoint.Snapshot, input string) (engine.TurnResult, error) {
	f.inputs = append(f.inputs, input)
	snap.State.Metadata.Turn++
	return engine.TurnResult{
		Snapshot: snap,
		Metrics: engine.TurnMetrics{
			Route:         engine.RouteFor(input),
			Narrative:     "The elder nods slowly.",
			Suggestions:   []string{"ask about the temple", "leave"},
			ExitRequested: engine.RouteFor(input) == engine.RouteExit,
		},
	}, nil
}

func snapshot() checkpoint.Snapshot {
	return checkpoint.Snapshot{State: models.GameState{
		Narrative: &models.Narrative{Title: "The Lost Temple"},
		World:     models.World{Locations: []models.Location{{ID: "loc_village", Name: "Hollow Village"}}},
		Players: []models.Player{{
			ID: "player_1", Name: "Vex", Class: "Rogue", CurrentHP: 10, MaxHP: 10,
			Inventory: []string{"rations"}, LocationID: "loc_village",
		}},
		Metadata: models.Metadata{SceneID: "The Hollow Village"},
	}}
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next
}

func typeLine(m tea.Model, line string) (tea.Model, tea.Cmd) {
	mm := m.(model)
	mm.textInput.SetValue(line)
	return mm.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestHintStartsSession(t *testing.T) {
	game := &fakeGame{}
	var m tea.Model = newModel(game, Options{SessionID: "s1", Setting: models.DefaultSetting()})

	m, cmd := typeLine(m, "haunted temple")
	assert.Equal(t, stateLoading, m.(model).state)
	m = run(t, m, cmd)

	got := m.(model)
	assert.Equal(t, statePlaying, got.state)
	assert.Equal(t, "haunted temple", game.setting.Hint)
	assert.Contains(t, got.gameLog, "ruined village")
	assert.Contains(t, got.View(), "SUGGESTIONS")
	assert.Contains(t, got.View(), "Hollow Village")
}

func TestSuggestionNumberSelectsAction(t *testing.T) {
	game := &fakeGame{}
	res, _ := game.Initialize(context.Background(), "s1", models.Setting{})
	var m tea.Model = newModel(game, Options{SessionID: "s1", Resumed: &res})

	m, cmd := typeLine(m, "2")
	assert.True(t, m.(model).busy)
	m = run(t, m, cmd)

	require.Equal(t, []string{"talk to the elder"}, game.inputs)
	got := m.(model)
	assert.False(t, got.busy)
	assert.Equal(t, 1, got.snap.State.Metadata.Turn)
	assert.Equal(t, []string{"ask about the temple", "leave"}, got.suggestions)
	assert.Contains(t, got.gameLog, "elder nods")
}

func TestRollCommandStaysLocal(t *testing.T) {
	game := &fakeGame{}
	res, _ := game.Initialize(context.Background(), "s1", models.Setting{})
	var m tea.Model = newModel(game, Options{SessionID: "s1", Resumed: &res, Roller: dice.NewRoller(dice.NewScript(4, 6))})

	m, cmd := typeLine(m, "/roll 2d6+1")
	assert.Nil(t, cmd)
	assert.Empty(t, game.inputs)
	assert.Contains(t, m.(model).gameLog, "= 11")
}

func TestExitRouteQuits(t *testing.T) {
	game := &fakeGame{}
	res, _ := game.Initialize(context.Background(), "s1", models.Setting{})
	var m tea.Model = newModel(game, Options{SessionID: "s1", Resumed: &res})

	m, cmd := typeLine(m, "quit")
	require.NotNil(t, cmd)
	_, quit := m.Update(cmd())
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
}
