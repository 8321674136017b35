package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/memory"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/narration"
)

// Initialize graph nodes.
const (
	NodePlanNarrative    Node = "plan-narrative"
	NodeBuildLore        Node = "build-lore"
	NodeInstantiateWorld Node = "instantiate-world"
	NodeCreatePlayers    Node = "create-players"
	NodeOpening          Node = "initial-narration"
)

// OpeningScene is the scene id used when the narrative plans no scenes.
const OpeningScene = "opening"

type initRun struct {
	sessionID  string
	started    time.Time
	snap       checkpoint.Snapshot
	response   narration.Response
	persistErr error
}

func (m *Machine) newInitRun(id string, setting models.Setting) *initRun {
	if setting.Theme == "" {
		setting.Theme = models.DefaultSetting().Theme
	}
	if len(setting.PlayerConcepts) == 0 {
		setting.PlayerConcepts = models.DefaultSetting().PlayerConcepts
	}
	now := m.now()
	return &initRun{
		sessionID: id,
		started:   now,
		snap: checkpoint.Snapshot{
			SchemaVersion: checkpoint.SchemaVersion,
			SessionID:     id,
			State: models.GameState{
				Setting: setting,
				Metadata: models.Metadata{
					SessionID:  id,
					CampaignID: m.newID(),
					StartedAt:  now,
					UpdatedAt:  now,
				},
			},
			Pacing: m.pacer.NewMetrics(),
		},
	}
}

func (m *Machine) buildInitGraph() *graph[*initRun] {
	return newGraph[*initRun]("initialize", NodePlanNarrative, NodeCommit).
		add(NodePlanNarrative, m.planNarrative, NodeBuildLore).
		add(NodeBuildLore, m.buildLore, NodeInstantiateWorld).
		add(NodeInstantiateWorld, m.instantiateWorld, NodeCreatePlayers).
		add(NodeCreatePlayers, m.createPlayers, NodeOpening).
		add(NodeOpening, m.openingNarration, NodeCommit).
		add(NodeCommit, m.commitInit)
}

func (m *Machine) planNarrative(ctx context.Context, r *initRun) (Node, error) {
	n, err := m.builder.PlanNarrative(ctx, r.snap.State.Setting)
	if err != nil {
		return "", fmt.Errorf("plan narrative: %w", err)
	}
	r.snap.State.Narrative = &n
	return NodeBuildLore, nil
}

func (m *Machine) buildLore(ctx context.Context, r *initRun) (Node, error) {
	state := &r.snap.State
	regions, err := m.builder.BuildLore(ctx, state.Setting, *state.Narrative)
	if err != nil {
		return "", fmt.Errorf("build lore: %w", err)
	}
	state.World.Regions = regions
	return NodeInstantiateWorld, nil
}

func (m *Machine) instantiateWorld(ctx context.Context, r *initRun) (Node, error) {
	state := &r.snap.State
	w, err := m.builder.InstantiateWorld(ctx, state.Setting, *state.Narrative, state.World.Regions)
	if err != nil {
		return "", fmt.Errorf("instantiate world: %w", err)
	}
	if len(w.Regions) == 0 {
		w.Regions = state.World.Regions
	}
	state.World = w
	return NodeCreatePlayers, nil
}

// createPlayers builds every character concurrently and waits for all of
// them; one failure fails the node.
func (m *Machine) createPlayers(ctx context.Context, r *initRun) (Node, error) {
	state := &r.snap.State
	concepts := state.Setting.PlayerConcepts
	players := make([]models.Player, len(concepts))

	g, gctx := errgroup.WithContext(ctx)
	for i, concept := range concepts {
		g.Go(func() error {
			p, err := m.builder.CreatePlayer(gctx, state.Setting, state.World, concept, i)
			if err != nil {
				return fmt.Errorf("create player %d (%s): %w", i+1, concept, err)
			}
			players[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	state.Players = players

	if err := state.Validate(); err != nil {
		return "", err
	}
	return NodeOpening, nil
}

func (m *Machine) openingNarration(ctx context.Context, r *initRun) (Node, error) {
	state := &r.snap.State
	state.Metadata.SceneID = OpeningScene
	if len(state.Narrative.Scenes) > 0 {
		state.Metadata.SceneID = state.Narrative.Scenes[0]
	}

	r.response = m.narrate(ctx, narration.Request{
		Kind:      narration.KindOpening,
		SessionID: r.sessionID,
		Summary:   narration.Summarize(state),
	})
	state.ActionSuggestions = append([]string(nil), r.response.Suggestions...)
	state.Messages = append(state.Messages, models.Message{Role: models.RoleNarrator, Text: r.response.Narrative})

	mem := memory.New(r.sessionID, state.Metadata.CampaignID, m.window, state.Metadata.StartedAt)
	mem.Append(memory.EventNode{
		ID:           memory.EventID(0, 0),
		Phase:        string(NodeOpening),
		Intent:       models.IntentUnknown,
		SceneContext: state.Metadata.SceneID,
		Narrative:    r.response.Narrative,
	})
	r.snap.Memory = *mem
	return NodeCommit, nil
}

func (m *Machine) commitInit(ctx context.Context, r *initRun) (Node, error) {
	if err := m.save(ctx, r.sessionID, &r.snap); err != nil {
		r.persistErr = err
	}
	m.logger.Info("session initialized",
		zap.String("session_id", r.sessionID),
		zap.String("title", r.snap.State.Narrative.Title),
		zap.Int("players", len(r.snap.State.Players)),
	)
	return "", nil
}
