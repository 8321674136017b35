package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/pacing"
)

// execute runs the command tree against a file store in dir.
func execute(t *testing.T, dir string, args ...string) string {
	t.Helper()
	base := []string{
		"--backend", "file",
		"--provider", "procedural",
		"--save-dir", dir,
		"--log-output", filepath.Join(dir, "test.log"),
	}
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(base, args...))
	require.NoError(t, root.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestSimulateThenInspectSessions(t *testing.T) {
	dir := t.TempDir()

	out := execute(t, dir, "simulate", "sim-1", "--turns", "3")
	assert.Contains(t, out, "session sim-1: The Lost Temple of Azurath (turn 0)")
	assert.Contains(t, out, "turn 1 [")
	assert.Contains(t, out, "turn 3 [")
	assert.Contains(t, out, "after turn 3")

	out = execute(t, dir, "sessions", "list")
	assert.Contains(t, out, "sim-1")
	assert.Contains(t, out, "The Lost Temple of Azurath")

	out = execute(t, dir, "sessions", "show", "sim-1")
	assert.Contains(t, out, "session_id: sim-1")
	assert.Contains(t, out, "turn: 3")

	// A second run resumes from the checkpoint instead of rebuilding.
	out = execute(t, dir, "simulate", "sim-1", "--turns", "1")
	assert.Contains(t, out, "(turn 3)")
	assert.Contains(t, out, "turn 4 [")

	out = execute(t, dir, "sessions", "delete", "sim-1")
	assert.Contains(t, out, "deleted sim-1")
	assert.Contains(t, execute(t, dir, "sessions", "list"), "no sessions")
}

func TestInvalidFlagsFailValidation(t *testing.T) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--backend", "tape", "--log-output", "stderr", "sessions", "list"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown checkpoint backend "tape"`)
}

func TestDeleteMissingSession(t *testing.T) {
	dir := t.TempDir()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--save-dir", dir, "--backend", "file", "--provider", "procedural", "sessions", "delete", "ghost"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No saved adventure")
}

func TestOutcomeLine(t *testing.T) {
	tm := engine.TurnMetrics{
		Turn:  2,
		Route: engine.RouteAction,
		Outcome: &models.OutcomeToken{
			Intent: models.IntentAttack,
			DC:     12,
			Status: models.StatusResolved,
			Damage: 7,
		},
		Changes: []models.WorldStateChange{{Type: models.ChangeHealth, TargetID: "npc_goblin", OldValue: "12", NewValue: "5"}},
		Trigger: pacing.Trigger{ConditionMet: true, NextSceneID: "The Keep", Type: pacing.TriggerPacing},
	}
	assert.Equal(t,
		"turn 2 [action] attack the goblin -> attack vs DC 12: resolved (7 damage); health npc_goblin 12->5; scene -> The Keep (pacing)",
		outcomeLine("attack the goblin", tm))
}
