// Package engine runs the initialize and single-turn graphs over a session
// snapshot and persists the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/dice"
	"github.com/tatianab/dungeon-master/internal/memory"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/narration"
	"github.com/tatianab/dungeon-master/internal/pacing"
	"github.com/tatianab/dungeon-master/internal/rules"
	"github.com/tatianab/dungeon-master/internal/world"
)

// RouteInitialize labels the metrics of an initialize run.
const RouteInitialize Route = "initialize"

// TurnMetrics describes what a single graph run did.
type TurnMetrics struct {
	Turn              int
	Route             Route
	Intent            models.Intent
	Outcome           *models.OutcomeToken
	Changes           []models.WorldStateChange
	Trigger           pacing.Trigger
	Narrative         string
	Suggestions       []string
	Visited           []Node
	Duration          time.Duration
	NarrationFallback bool
	Persisted         bool
	ExitRequested     bool
	Resumed           bool
}

// TurnResult is the pair every run returns: the new snapshot and the
// metrics describing how it was produced.
type TurnResult struct {
	Snapshot checkpoint.Snapshot
	Metrics  TurnMetrics
}

// Options wires a Machine. Only Store is required; every other
// collaborator has a working default.
type Options struct {
	Store   checkpoint.Store
	Gateway narration.Gateway
	Builder narration.WorldBuilder
	Roller  *dice.Roller

	Pacing          pacing.Config
	MemoryWindow    int
	ContextLookback int
	FallbackAbility models.Ability
	Policy          TurnPolicy

	Logger     *zap.Logger
	Tracer     trace.Tracer
	Registerer prometheus.Registerer
	Now        func() time.Time
	NewID      func() string
}

// Machine owns the collaborators of a game and runs its graphs. It is safe
// for concurrent use across sessions; within a session turns never overlap.
type Machine struct {
	store    checkpoint.Store
	gateway  narration.Gateway
	builder  narration.WorldBuilder
	resolver *rules.Resolver
	updater  *world.Updater
	pacer    *pacing.Controller

	window   int
	lookback int

	locks   *sessionLocks
	obs     observer
	logger  *zap.Logger
	metrics *collectors
	now     func() time.Time
	newID   func() string

	initGraph *graph[*initRun]
	turnGraph *graph[*turnRun]

	headsMu sync.Mutex
	heads   map[string]checkpoint.Snapshot
}

// New builds a Machine and validates both graphs.
func New(opts Options) (*Machine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: checkpoint store is required")
	}
	m := &Machine{
		store:    opts.Store,
		gateway:  opts.Gateway,
		builder:  opts.Builder,
		window:   opts.MemoryWindow,
		lookback: opts.ContextLookback,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
		heads:    make(map[string]checkpoint.Snapshot),
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.gateway == nil {
		m.gateway = narration.NewProcedural()
	}
	if m.builder == nil {
		m.builder = narration.NewProcedural()
	}
	if m.window <= 0 {
		m.window = memory.DefaultWindow
	}
	if m.lookback <= 0 {
		m.lookback = memory.DefaultLookback
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC().Round(0) }
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/tatianab/dungeon-master/internal/engine")
	}

	m.resolver = rules.NewResolver(opts.Roller, opts.FallbackAbility)
	m.updater = world.NewUpdater(m.logger)
	m.pacer = pacing.NewController(opts.Pacing)
	m.locks = newSessionLocks(opts.Policy, m.Forget)
	m.obs = observer{tracer: tracer, logger: m.logger}
	m.metrics = newCollectors(opts.Registerer)

	m.initGraph = m.buildInitGraph()
	if err := m.initGraph.validate(); err != nil {
		return nil, err
	}
	m.turnGraph = m.buildTurnGraph()
	if err := m.turnGraph.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Resume loads a session and checks that it can be played. An absent or
// undecodable checkpoint returns checkpoint.ErrNotFound or
// checkpoint.ErrIncompatibleSnapshot; an incomplete state returns a
// *models.ValidationError.
func (m *Machine) Resume(ctx context.Context, sessionID string) (checkpoint.Snapshot, error) {
	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return checkpoint.Snapshot{}, err
	}
	if err := snap.State.Validate(); err != nil {
		return checkpoint.Snapshot{}, err
	}
	m.setHead(snap.SessionID, snap)
	return snap, nil
}

// NeedsInitialization reports whether err from Resume means the session
// should be set up from scratch rather than treated as a failure.
func NeedsInitialization(err error) bool {
	return errors.Is(err, checkpoint.ErrNotFound) ||
		errors.Is(err, checkpoint.ErrIncompatibleSnapshot) ||
		errors.Is(err, models.ErrNotResumable)
}

// Start resumes sessionID when its checkpoint is playable and initializes
// it from setting otherwise.
func (m *Machine) Start(ctx context.Context, sessionID string, setting models.Setting) (TurnResult, error) {
	res, err := m.Continue(ctx, sessionID)
	switch {
	case err == nil:
		return res, nil
	case NeedsInitialization(err):
		m.logger.Info("session needs initialization", zap.String("session_id", sessionID), zap.Error(err))
		return m.Initialize(ctx, sessionID, setting)
	}
	return TurnResult{}, err
}

// Continue resumes sessionID and describes it the way a turn would: the
// last narration and the suggestions that went with it.
func (m *Machine) Continue(ctx context.Context, sessionID string) (TurnResult, error) {
	snap, err := m.Resume(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	m.logger.Info("session resumed", zap.String("session_id", snap.SessionID), zap.Int("turn", snap.State.Metadata.Turn))
	return TurnResult{Snapshot: snap, Metrics: resumedMetrics(snap)}, nil
}

func resumedMetrics(snap checkpoint.Snapshot) TurnMetrics {
	tm := TurnMetrics{
		Turn:        snap.State.Metadata.Turn,
		Suggestions: append([]string(nil), snap.State.ActionSuggestions...),
		Persisted:   true,
		Resumed:     true,
	}
	for i := len(snap.State.Messages) - 1; i >= 0; i-- {
		if snap.State.Messages[i].Role == models.RoleNarrator {
			tm.Narrative = snap.State.Messages[i].Text
			break
		}
	}
	if len(tm.Suggestions) == 0 {
		tm.Suggestions = append([]string(nil), narration.DefaultSuggestions...)
	}
	return tm
}

// Initialize runs the initialize graph once for sessionID and saves the
// resulting snapshot. A *PersistenceError comes with a usable result.
func (m *Machine) Initialize(ctx context.Context, sessionID string, setting models.Setting) (TurnResult, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return TurnResult{}, checkpoint.ErrSessionIDRequired
	}
	release, err := m.locks.acquire(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTurnInFlight) {
			m.metrics.rejectedTurns.Inc()
		}
		return TurnResult{}, err
	}
	defer release()

	run := m.newInitRun(id, setting)
	visited, err := m.initGraph.run(ctx, m.obs, run)
	if err != nil {
		m.logger.Error("initialization failed", zap.String("session_id", id), zap.Error(err))
		return TurnResult{}, fmt.Errorf("initialize session %s: %w", id, err)
	}
	m.metrics.initialized.Inc()

	result := TurnResult{
		Snapshot: run.snap,
		Metrics: TurnMetrics{
			Route:             RouteInitialize,
			Narrative:         run.response.Narrative,
			Suggestions:       run.response.Suggestions,
			Visited:           visited,
			Duration:          m.now().Sub(run.started),
			NarrationFallback: run.response.Fallback,
			Persisted:         run.persistErr == nil,
		},
	}
	m.setHead(id, run.snap)
	if run.persistErr != nil {
		return result, run.persistErr
	}
	return result, nil
}

// ExecuteTurn runs the single-turn graph once for input against snap and
// returns the new snapshot with the turn's metrics. The caller's snapshot is
// never modified; a turn that fails returns it unchanged along with the
// error. A turn that queued behind another is applied to the snapshot that
// turn committed rather than to snap, so queued turns build on each other.
// The committed snapshot is dropped once no turn for the session is waiting.
func (m *Machine) ExecuteTurn(ctx context.Context, sessionID string, snap checkpoint.Snapshot, input string) (TurnResult, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return TurnResult{Snapshot: snap}, checkpoint.ErrSessionIDRequired
	}
	release, err := m.locks.acquire(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTurnInFlight) {
			m.metrics.rejectedTurns.Inc()
		}
		return TurnResult{Snapshot: snap}, err
	}
	defer release()

	base := m.latest(id, snap)
	if err := base.State.Validate(); err != nil {
		return TurnResult{Snapshot: snap}, err
	}

	run := &turnRun{
		sessionID: id,
		input:     NormalizeInput(input),
		snap:      base.Clone(),
		started:   m.now(),
	}
	visited, err := m.turnGraph.run(ctx, m.obs, run)
	elapsed := m.now().Sub(run.started)
	if err != nil {
		m.metrics.turns.WithLabelValues(string(run.route), "error").Inc()
		m.logger.Warn("turn aborted",
			zap.String("session_id", id),
			zap.String("input", run.input),
			zap.Strings("visited", nodeNames(visited)),
			zap.Error(err),
		)
		return TurnResult{Snapshot: base, Metrics: TurnMetrics{Route: run.route, Visited: visited, Duration: elapsed}}, err
	}

	m.metrics.turnDuration.WithLabelValues(string(run.route)).Observe(elapsed.Seconds())
	result := TurnResult{Snapshot: run.snap, Metrics: run.metrics(visited, elapsed)}
	m.setHead(id, run.snap)

	if run.persistErr != nil {
		m.metrics.turns.WithLabelValues(string(run.route), "unsaved").Inc()
		return result, run.persistErr
	}
	m.metrics.turns.WithLabelValues(string(run.route), "ok").Inc()
	m.logger.Info("turn committed",
		zap.String("session_id", id),
		zap.Int("turn", result.Metrics.Turn),
		zap.String("route", string(run.route)),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

// latest picks the newer of snap and the last snapshot committed here.
func (m *Machine) latest(id string, snap checkpoint.Snapshot) checkpoint.Snapshot {
	m.headsMu.Lock()
	defer m.headsMu.Unlock()
	head, ok := m.heads[id]
	if ok && head.State.Metadata.Turn > snap.State.Metadata.Turn {
		return head
	}
	return snap
}

func (m *Machine) setHead(id string, snap checkpoint.Snapshot) {
	m.headsMu.Lock()
	defer m.headsMu.Unlock()
	m.heads[id] = snap
}

// Forget drops the cached head for a session. Heads are also dropped
// automatically when a session has no running or waiting turn.
func (m *Machine) Forget(sessionID string) {
	m.headsMu.Lock()
	defer m.headsMu.Unlock()
	delete(m.heads, sessionID)
}

// save writes snap under id at the terminal node. A failure is recorded
// as a *PersistenceError rather than failing the run.
func (m *Machine) save(ctx context.Context, id string, snap *checkpoint.Snapshot) error {
	now := m.now()
	snap.SessionID = id
	snap.SchemaVersion = checkpoint.SchemaVersion
	snap.SavedAt = now
	snap.State.Metadata.UpdatedAt = now
	if err := m.store.Save(ctx, id, *snap); err != nil {
		m.metrics.saveFailures.Inc()
		m.logger.Error("checkpoint save failed", zap.String("session_id", id), zap.Error(err))
		return &PersistenceError{SessionID: id, Err: err}
	}
	return nil
}

// narrate asks the gateway and substitutes the neutral response when it
// fails, so narration never aborts a run.
func (m *Machine) narrate(ctx context.Context, req narration.Request) narration.Response {
	resp, err := m.gateway.Narrate(ctx, req)
	if err == nil && strings.TrimSpace(resp.Narrative) != "" {
		resp.Narrative, resp.Suggestions = narration.SplitSuggestions(resp.Narrative, resp.Suggestions)
		resp.Suggestions = narration.CleanSuggestions(resp.Suggestions)
		if len(resp.Suggestions) < 2 {
			resp.Suggestions = narration.CleanSuggestions(append(resp.Suggestions, narration.DefaultSuggestions...))
		}
	} else {
		if err == nil {
			err = narration.ErrMalformedResponse
		}
		m.logger.Warn("narration unavailable, using neutral response", zap.String("session_id", req.SessionID), zap.Error(err))
		resp = narration.Fallback()
	}
	if resp.Fallback {
		m.metrics.fallbacks.Inc()
	}
	return resp
}

func nodeNames(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = string(n)
	}
	return out
}
