package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/memory"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/narration"
	"github.com/tatianab/dungeon-master/internal/pacing"
	"github.com/tatianab/dungeon-master/internal/rules"
)

// Single-turn graph nodes.
const (
	NodeClassify Node = "classify"
	NodeResolve  Node = "resolve-outcome"
	NodeApply    Node = "apply-world-update"
	NodeQuestion Node = "answer-question"
	NodeExit     Node = "exit-request"
	NodePace     Node = "update-pacing"
	NodeNarrate  Node = "request-narration"
	NodeRemember Node = "append-to-memory"
	NodeCommit   Node = "commit"
)

// turnRun is the scratch space of one ExecuteTurn. snap is a private
// clone; nothing outside the run sees it until the terminal node saves it.
type turnRun struct {
	sessionID string
	input     string
	started   time.Time

	snap       checkpoint.Snapshot
	route      Route
	action     rules.Action
	token      *models.OutcomeToken
	trigger    pacing.Trigger
	paced      bool
	tension    float64
	response   narration.Response
	persistErr error
}

func (m *Machine) buildTurnGraph() *graph[*turnRun] {
	return newGraph[*turnRun]("turn", NodeClassify, NodeCommit).
		add(NodeClassify, m.classify, NodeResolve, NodeQuestion, NodeExit).
		add(NodeResolve, m.resolve, NodeApply).
		add(NodeApply, m.applyWorld, NodePace).
		add(NodeQuestion, m.question, NodePace).
		add(NodeExit, m.exit, NodeNarrate).
		add(NodePace, m.pace, NodeNarrate).
		add(NodeNarrate, m.narrateTurn, NodeRemember, NodeCommit).
		add(NodeRemember, m.remember, NodeCommit).
		add(NodeCommit, m.commitTurn)
}

func (m *Machine) classify(_ context.Context, r *turnRun) (Node, error) {
	state := &r.snap.State
	state.ClearTurnScratch()
	state.CurrentAction = r.input
	r.route = RouteFor(r.input)

	if r.route == RouteExit {
		return NodeExit, nil
	}
	state.Metadata.Turn++
	state.Messages = append(state.Messages, models.Message{Role: models.RolePlayer, Turn: state.Metadata.Turn, Text: r.input})

	if r.route == RouteQuestion {
		return NodeQuestion, nil
	}
	performer, ok := state.ActivePlayer()
	if !ok {
		return "", &rules.ResolutionError{Reason: "the party is empty"}
	}
	r.action = rules.Action{
		ID:          rules.ActionID(state.Metadata.Turn, 0),
		PerformerID: performer.ID,
		TargetID:    rules.FindTarget(state, performer, r.input),
		Description: r.input,
		Intent:      rules.Classify(r.input),
	}
	return NodeResolve, nil
}

func (m *Machine) resolve(_ context.Context, r *turnRun) (Node, error) {
	token, err := m.resolver.Resolve(&r.snap.State, r.action)
	if err != nil {
		return "", err
	}
	r.token = &token
	r.snap.State.OutcomeTokens = []models.OutcomeToken{token}
	return NodeApply, nil
}

func (m *Machine) applyWorld(_ context.Context, r *turnRun) (Node, error) {
	state := &r.snap.State
	state.LastWorldChanges = m.updater.Apply(state.OutcomeTokens, state)
	return NodePace, nil
}

func (m *Machine) question(_ context.Context, r *turnRun) (Node, error) {
	m.logger.Debug("meta-question, no roll", zap.String("session_id", r.sessionID))
	return NodePace, nil
}

func (m *Machine) exit(_ context.Context, r *turnRun) (Node, error) {
	m.logger.Info("exit requested", zap.String("session_id", r.sessionID))
	return NodeNarrate, nil
}

func (m *Machine) pace(_ context.Context, r *turnRun) (Node, error) {
	state := &r.snap.State
	metrics, trigger := m.pacer.Update(r.snap.Pacing, state, r.token)
	r.snap.Pacing = metrics
	r.trigger = trigger
	r.paced = true
	r.tension = metrics.Trajectory[len(metrics.Trajectory)-1]

	if trigger.ConditionMet {
		next := trigger.NextSceneID
		if next == "" {
			next = trigger.FallbackSceneID
		}
		state.Metadata.SceneIndex = metrics.SceneIndex
		state.Metadata.SceneID = next
		m.metrics.transitions.WithLabelValues(string(trigger.Type)).Inc()
		m.logger.Info("scene transition",
			zap.String("session_id", r.sessionID),
			zap.String("trigger", string(trigger.Type)),
			zap.String("reason", trigger.Reason),
			zap.String("next_scene", next),
		)
	}
	return NodeNarrate, nil
}

func (m *Machine) narrateTurn(ctx context.Context, r *turnRun) (Node, error) {
	state := &r.snap.State
	req := narration.Request{
		SessionID: r.sessionID,
		Input:     r.input,
		Summary:   narration.Summarize(state),
		Outcomes:  state.OutcomeTokens,
		Changes:   state.LastWorldChanges,
		Recent:    r.snap.Memory.ChronicleWindow(m.lookback),
	}
	switch r.route {
	case RouteExit:
		req.Kind = narration.KindFarewell
	case RouteQuestion:
		req.Kind = narration.KindQuestion
	default:
		req.Kind = narration.KindAction
	}
	if r.paced {
		req.Pacing = pacing.Band(r.tension)
		if r.trigger.ConditionMet {
			req.Transition = fmt.Sprintf("%s, moving on to %s", r.trigger.Reason, state.Metadata.SceneID)
		}
	}

	r.response = m.narrate(ctx, req)
	state.ActionSuggestions = append([]string(nil), r.response.Suggestions...)
	state.Messages = append(state.Messages, models.Message{Role: models.RoleNarrator, Turn: state.Metadata.Turn, Text: r.response.Narrative})

	if r.route == RouteExit {
		return NodeCommit, nil
	}
	return NodeRemember, nil
}

func (m *Machine) remember(_ context.Context, r *turnRun) (Node, error) {
	state := &r.snap.State
	event := memory.EventNode{
		ID:           memory.EventID(state.Metadata.Turn, 0),
		Turn:         state.Metadata.Turn,
		Phase:        string(r.route),
		Input:        r.input,
		Intent:       models.IntentUnknown,
		Changes:      append([]models.WorldStateChange(nil), state.LastWorldChanges...),
		SceneContext: state.Metadata.SceneID,
		Narrative:    r.response.Narrative,
	}
	if r.token != nil {
		token := r.token.Clone()
		event.PerformerID = token.PerformerID
		event.Intent = token.Intent
		event.Outcome = &token
	}
	for _, c := range state.LastWorldChanges {
		if c.Type != models.ChangeAttitude {
			continue
		}
		if event.NPCReactions == nil {
			event.NPCReactions = make(map[string]string)
		}
		event.NPCReactions[c.TargetID] = c.NewValue
	}
	r.snap.Memory.Append(event)
	return NodeCommit, nil
}

func (m *Machine) commitTurn(ctx context.Context, r *turnRun) (Node, error) {
	if err := m.save(ctx, r.sessionID, &r.snap); err != nil {
		r.persistErr = err
	}
	return "", nil
}

func (r *turnRun) metrics(visited []Node, elapsed time.Duration) TurnMetrics {
	state := r.snap.State
	tm := TurnMetrics{
		Turn:              state.Metadata.Turn,
		Route:             r.route,
		Intent:            models.IntentUnknown,
		Changes:           state.LastWorldChanges,
		Trigger:           r.trigger,
		Narrative:         r.response.Narrative,
		Suggestions:       r.response.Suggestions,
		Visited:           visited,
		Duration:          elapsed,
		NarrationFallback: r.response.Fallback,
		Persisted:         r.persistErr == nil,
		ExitRequested:     r.route == RouteExit,
	}
	if r.token != nil {
		token := r.token.Clone()
		tm.Intent = token.Intent
		tm.Outcome = &token
	}
	return tm
}
