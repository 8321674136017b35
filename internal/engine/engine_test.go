package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/dice"
	"github.com/tatianab/dungeon-master/internal/memory"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/narration"
	"github.com/tatianab/dungeon-master/internal/pacing"
	"github.com/tatianab/dungeon-master/internal/rules"
)

type mockGateway struct {
	mock.Mock
}

func (g *mockGateway) Narrate(ctx context.Context, req narration.Request) (narration.Response, error) {
	args := g.Called(ctx, req)
	return args.Get(0).(narration.Response), args.Error(1)
}

type failingStore struct {
	*checkpoint.MemoryStore
	err error
}

func (s *failingStore) Save(context.Context, string, checkpoint.Snapshot) error { return s.err }

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newMachine(t *testing.T, opts Options) *Machine {
	t.Helper()
	if opts.Store == nil {
		opts.Store = checkpoint.NewMemoryStore()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "campaign-1" }
	}
	m, err := New(opts)
	require.NoError(t, err)
	return m
}

// goblinSnapshot is a resumable session with a STR 16 fighter facing a
// lone goblin.
func goblinSnapshot() checkpoint.Snapshot {
	state := models.GameState{
		Narrative: &models.Narrative{Title: "Goblin Trouble", Scenes: []string{"The Gate", "The Keep"}},
		World: models.World{
			Name:    "Testland",
			Regions: []models.Region{{Name: "Marsh"}},
			Locations: []models.Location{
				{ID: "loc_gate", Name: "Gate", ConnectedIDs: []string{"loc_keep"}},
				{ID: "loc_keep", Name: "Keep", ConnectedIDs: []string{"loc_gate"}},
			},
			NPCs: []models.NPC{
				{ID: "npc_goblin", Name: "Goblin", LocationID: "loc_gate", Attitude: models.Hostile, CurrentHP: 20, MaxHP: 20},
			},
		},
		Players: []models.Player{{
			ID: "player_1", Name: "Brann", Class: "Fighter", Level: 1,
			Stats:     models.Stats{Strength: 16, Dexterity: 12, Constitution: 14, Intelligence: 8, Wisdom: 10, Charisma: 10},
			CurrentHP: 12, MaxHP: 12, ArmorClass: 11, LocationID: "loc_gate",
		}},
		Metadata: models.Metadata{SessionID: "s1", SceneID: "The Gate"},
	}
	return checkpoint.Snapshot{
		SchemaVersion: checkpoint.SchemaVersion,
		SessionID:     "s1",
		State:         state,
		Memory:        *memory.New("s1", "c1", 5, fixedNow),
		Pacing:        pacing.NewController(pacing.DefaultConfig()).NewMetrics(),
	}
}

func TestGraphsValidate(t *testing.T) {
	m := newMachine(t, Options{})
	require.NoError(t, m.turnGraph.validate())
	require.NoError(t, m.initGraph.validate())
	assert.Empty(t, m.turnGraph.Successors(NodeCommit))
	assert.ElementsMatch(t, []Node{NodeResolve, NodeQuestion, NodeExit}, m.turnGraph.Successors(NodeClassify))
	assert.Equal(t, []Node{NodePlanNarrative, NodeBuildLore, NodeInstantiateWorld, NodeCreatePlayers, NodeOpening, NodeCommit}, m.initGraph.Nodes())
}

func TestGraphValidateRejects(t *testing.T) {
	noop := func(context.Context, *int) (Node, error) { return "", nil }
	tests := []struct {
		name  string
		build func() *graph[*int]
	}{
		{"cycle", func() *graph[*int] {
			return newGraph[*int]("g", "a", "z").add("a", noop, "b").add("b", noop, "a", "z").add("z", noop)
		}},
		{"unknown successor", func() *graph[*int] {
			return newGraph[*int]("g", "a", "z").add("a", noop, "missing").add("z", noop)
		}},
		{"terminal with successor", func() *graph[*int] {
			return newGraph[*int]("g", "a", "z").add("a", noop, "z").add("z", noop, "a")
		}},
		{"dead end", func() *graph[*int] {
			return newGraph[*int]("g", "a", "z").add("a", noop, "b", "z").add("b", noop).add("z", noop)
		}},
		{"self loop", func() *graph[*int] {
			return newGraph[*int]("g", "a", "z").add("a", noop, "a", "z").add("z", noop)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.build().validate(), ErrInvalidGraph)
		})
	}
}

func TestGraphRunRejectsUndeclaredStep(t *testing.T) {
	m := newMachine(t, Options{})
	g := newGraph[*int]("g", "a", "z").
		add("a", func(context.Context, *int) (Node, error) { return "z", nil }, "b").
		add("b", func(context.Context, *int) (Node, error) { return "z", nil }, "z").
		add("z", func(context.Context, *int) (Node, error) { return "", nil })
	require.NoError(t, g.validate())

	n := 0
	visited, err := g.run(context.Background(), m.obs, &n)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, []Node{"a"}, visited)
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		input string
		want  Route
	}{
		{"quit", RouteExit},
		{"Goodbye!", RouteExit},
		{"q", RouteExit},
		{"quit the guild and attack", RouteAction},
		{"where am I?", RouteQuestion},
		{"who is the elder", RouteQuestion},
		{"tell me about the temple", RouteQuestion},
		{"how do I attack?", RouteQuestion},
		{"attack the goblin!", RouteAction},
		{"what if I attack the goblin", RouteAction},
		{"cast a spell on the door", RouteAction},
		{"open the chest", RouteAction},
		{IdleInput, RouteAction},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, RouteFor(tt.input))
		})
	}
	assert.Equal(t, IdleInput, NormalizeInput("   "))
}

func TestAttackTurnEndToEnd(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	gw := &mockGateway{}
	gw.On("Narrate", mock.Anything, mock.MatchedBy(func(req narration.Request) bool {
		return req.Kind == narration.KindAction && len(req.Outcomes) == 1 && req.Pacing != ""
	})).Return(narration.Response{
		Narrative:   "Your blade bites deep.",
		Suggestions: []string{"press the attack", "step back"},
	}, nil).Once()

	m := newMachine(t, Options{
		Store:   store,
		Gateway: gw,
		Roller:  dice.NewRoller(dice.NewScript(18)),
	})
	before := goblinSnapshot()

	result, err := m.ExecuteTurn(context.Background(), "s1", before, "I attack the goblin")
	require.NoError(t, err)
	gw.AssertExpectations(t)

	tm := result.Metrics
	assert.Equal(t, 1, tm.Turn)
	assert.Equal(t, RouteAction, tm.Route)
	assert.Equal(t, models.IntentAttack, tm.Intent)
	require.NotNil(t, tm.Outcome)
	assert.Equal(t, "action_1_0", tm.Outcome.ActionID)
	assert.Equal(t, 12, tm.Outcome.DC)
	assert.Equal(t, 21, tm.Outcome.Roll.Total)
	assert.Equal(t, 15, tm.Outcome.Damage)
	assert.Equal(t, []Node{NodeClassify, NodeResolve, NodeApply, NodePace, NodeNarrate, NodeRemember, NodeCommit}, tm.Visited)
	assert.True(t, tm.Persisted)
	assert.False(t, tm.NarrationFallback)

	require.NotEmpty(t, tm.Changes)
	assert.Equal(t, models.ChangeHealth, tm.Changes[0].Type)
	assert.Equal(t, "npc_goblin", tm.Changes[0].TargetID)
	goblin, ok := result.Snapshot.State.NPC("npc_goblin")
	require.True(t, ok)
	assert.Equal(t, 5, goblin.CurrentHP)

	original, _ := before.State.NPC("npc_goblin")
	assert.Equal(t, 20, original.CurrentHP, "caller snapshot must not change")

	assert.Equal(t, []string{"press the attack", "step back"}, result.Snapshot.State.ActionSuggestions)
	require.Len(t, result.Snapshot.Memory.Chronicle, 1)
	assert.Equal(t, "evt_1_0", result.Snapshot.Memory.Chronicle[0].ID)
	assert.Equal(t, models.IntentAttack, result.Snapshot.Memory.Chronicle[0].Intent)

	saved, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, result.Snapshot, saved)
}

func TestQuestionTurnSkipsResolution(t *testing.T) {
	m := newMachine(t, Options{})
	result, err := m.ExecuteTurn(context.Background(), "s1", goblinSnapshot(), "where am I?")
	require.NoError(t, err)

	assert.Equal(t, RouteQuestion, result.Metrics.Route)
	assert.Nil(t, result.Metrics.Outcome)
	assert.Equal(t, 1, result.Metrics.Turn)
	assert.Equal(t, []Node{NodeClassify, NodeQuestion, NodePace, NodeNarrate, NodeRemember, NodeCommit}, result.Metrics.Visited)
	assert.Contains(t, result.Metrics.Narrative, "Gate")
	assert.Len(t, result.Snapshot.Pacing.Trajectory, 1)
}

func TestExitTurnSavesWithoutAdvancing(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := newMachine(t, Options{Store: store})
	result, err := m.ExecuteTurn(context.Background(), "s1", goblinSnapshot(), "quit")
	require.NoError(t, err)

	assert.True(t, result.Metrics.ExitRequested)
	assert.Equal(t, 0, result.Metrics.Turn)
	assert.Equal(t, []Node{NodeClassify, NodeExit, NodeNarrate, NodeCommit}, result.Metrics.Visited)
	assert.Empty(t, result.Snapshot.Memory.Chronicle)

	_, err = store.Load(context.Background(), "s1")
	require.NoError(t, err)
}

func TestResolutionErrorRollsBack(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := newMachine(t, Options{Store: store})
	snap := goblinSnapshot()
	snap.State.Players[0].Stats = models.Stats{}

	result, err := m.ExecuteTurn(context.Background(), "s1", snap, "I attack the goblin")
	var re *rules.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.False(t, IsWarning(err))
	assert.Contains(t, Explain(err), "could not be resolved")

	assert.Equal(t, 0, result.Snapshot.State.Metadata.Turn)
	goblin, _ := result.Snapshot.State.NPC("npc_goblin")
	assert.Equal(t, 20, goblin.CurrentHP)
	assert.Equal(t, []Node{NodeClassify, NodeResolve}, result.Metrics.Visited)

	_, err = store.Load(context.Background(), "s1")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestPersistenceFailureIsAWarning(t *testing.T) {
	store := &failingStore{MemoryStore: checkpoint.NewMemoryStore(), err: errors.New("disk full")}
	m := newMachine(t, Options{Store: store})

	result, err := m.ExecuteTurn(context.Background(), "s1", goblinSnapshot(), "search the gate")
	require.Error(t, err)
	assert.True(t, IsWarning(err))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "s1", pe.SessionID)

	assert.False(t, result.Metrics.Persisted)
	assert.Equal(t, 1, result.Snapshot.State.Metadata.Turn)
	assert.NotEmpty(t, result.Metrics.Narrative)
}

func TestNarrationFailureFallsBack(t *testing.T) {
	gw := &mockGateway{}
	gw.On("Narrate", mock.Anything, mock.Anything).Return(narration.Response{}, errors.New("model offline"))
	m := newMachine(t, Options{Gateway: gw})

	result, err := m.ExecuteTurn(context.Background(), "s1", goblinSnapshot(), "search the gate")
	require.NoError(t, err)
	assert.True(t, result.Metrics.NarrationFallback)
	assert.Equal(t, narration.NeutralNarrative, result.Metrics.Narrative)
	assert.Equal(t, narration.DefaultSuggestions, result.Metrics.Suggestions)
}

func TestShortSuggestionListIsToppedUp(t *testing.T) {
	gw := narration.GatewayFunc(func(context.Context, narration.Request) (narration.Response, error) {
		return narration.Response{Narrative: "The goblin snarls.", Suggestions: []string{"only one"}}, nil
	})
	m := newMachine(t, Options{Gateway: gw})

	result, err := m.ExecuteTurn(context.Background(), "s1", goblinSnapshot(), "search the gate")
	require.NoError(t, err)
	assert.False(t, result.Metrics.NarrationFallback)
	assert.Equal(t, []string{"only one", "look around", "wait"}, result.Metrics.Suggestions)
	assert.Equal(t, result.Metrics.Suggestions, result.Snapshot.State.ActionSuggestions)
}

func TestNarrationGetsBoundedMemory(t *testing.T) {
	gw := &mockGateway{}
	var seen []int
	gw.On("Narrate", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		seen = append(seen, len(args.Get(1).(narration.Request).Recent))
	}).Return(narration.Response{Narrative: "ok", Suggestions: []string{"a", "b"}}, nil)
	m := newMachine(t, Options{Gateway: gw, ContextLookback: 2})

	snap := goblinSnapshot()
	for range 4 {
		result, err := m.ExecuteTurn(context.Background(), "s1", snap, "wait")
		require.NoError(t, err)
		snap = result.Snapshot
	}
	assert.Equal(t, []int{0, 1, 2, 2}, seen)
	assert.Equal(t, 4, snap.State.Metadata.Turn)
}

func TestSceneTransitionAfterMaxTurns(t *testing.T) {
	cfg := pacing.DefaultConfig()
	cfg.MaxTurnsPerScene = 2
	cfg.LowTensionTurns = 10
	m := newMachine(t, Options{Pacing: cfg})
	snap := goblinSnapshot()
	snap.Pacing.MaxTurnsPerScene = 2
	var last TurnResult
	for range 2 {
		var err error
		last, err = m.ExecuteTurn(context.Background(), "s1", snap, "where am I?")
		require.NoError(t, err)
		snap = last.Snapshot
	}
	assert.True(t, last.Metrics.Trigger.ConditionMet)
	assert.Equal(t, pacing.TriggerPacing, last.Metrics.Trigger.Type)
	assert.Equal(t, "The Keep", snap.State.Metadata.SceneID)
	assert.Equal(t, 1, snap.State.Metadata.SceneIndex)
	assert.Equal(t, 0, snap.Pacing.TurnsInScene)
}

// blockingGateway holds every narration until release is closed.
type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
}

func (g *blockingGateway) Narrate(ctx context.Context, req narration.Request) (narration.Response, error) {
	g.entered <- struct{}{}
	<-g.release
	return narration.NewProcedural().Narrate(ctx, req)
}

func TestConcurrentTurnIsRejected(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}, 2), release: make(chan struct{})}
	m := newMachine(t, Options{Gateway: gw, Policy: PolicyReject})
	snap := goblinSnapshot()

	done := make(chan error, 1)
	go func() {
		_, err := m.ExecuteTurn(context.Background(), "s1", snap, "search the gate")
		done <- err
	}()
	<-gw.entered

	_, err := m.ExecuteTurn(context.Background(), "s1", snap, "I attack the goblin")
	require.ErrorIs(t, err, ErrTurnInFlight)

	other := goblinSnapshot()
	other.SessionID = "s2"
	go func() {
		_, _ = m.ExecuteTurn(context.Background(), "s2", other, "wait")
	}()
	<-gw.entered

	close(gw.release)
	require.NoError(t, <-done)
}

func TestConcurrentTurnsQueue(t *testing.T) {
	gw := &blockingGateway{entered: make(chan struct{}, 2), release: make(chan struct{})}
	m := newMachine(t, Options{Gateway: gw, Policy: PolicyQueue, Roller: dice.NewRoller(dice.NewScript(18))})
	snap := goblinSnapshot()

	var wg sync.WaitGroup
	results := make([]TurnResult, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = m.ExecuteTurn(context.Background(), "s1", snap, "I attack the goblin")
	}()
	<-gw.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = m.ExecuteTurn(context.Background(), "s1", snap, "I attack the goblin")
	}()
	require.Eventually(t, func() bool { return m.locks.waiting("s1") == 2 }, time.Second, time.Millisecond)
	close(gw.release)
	wg.Wait()

	turns := []int{results[0].Metrics.Turn, results[1].Metrics.Turn}
	assert.ElementsMatch(t, []int{1, 2}, turns)
	final := results[0].Snapshot
	if results[1].Metrics.Turn == 2 {
		final = results[1].Snapshot
	}
	goblin, _ := final.State.NPC("npc_goblin")
	assert.Equal(t, 0, goblin.CurrentHP, "second attack builds on the first")
}

func TestCommittedHeadIsDroppedWhenIdle(t *testing.T) {
	m := newMachine(t, Options{Roller: dice.NewRoller(dice.NewScript(18))})
	snap := goblinSnapshot()

	first, err := m.ExecuteTurn(context.Background(), "s1", snap, "I attack the goblin")
	require.NoError(t, err)
	m.headsMu.Lock()
	assert.Empty(t, m.heads)
	m.headsMu.Unlock()
	assert.Zero(t, m.locks.waiting("s1"))

	// With no head cached, the caller's snapshot is the base.
	second, err := m.ExecuteTurn(context.Background(), "s1", first.Snapshot, "wait")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Metrics.Turn)
}

func TestQueuedTurnHonoursContext(t *testing.T) {
	locks := newSessionLocks(PolicyQueue, nil)
	release, err := locks.acquire(context.Background(), "s1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "s1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := locks.acquire(context.Background(), "s1")
	require.NoError(t, err)
	release2()
	assert.Empty(t, locks.slots)
}

func TestInitializeBuildsResumableSession(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := newMachine(t, Options{Store: store})

	result, err := m.Initialize(context.Background(), "s1", models.Setting{Hint: "a drowned god"})
	require.NoError(t, err)

	assert.Equal(t, []Node{NodePlanNarrative, NodeBuildLore, NodeInstantiateWorld, NodeCreatePlayers, NodeOpening, NodeCommit}, result.Metrics.Visited)
	state := result.Snapshot.State
	require.NoError(t, state.Validate())
	require.Len(t, state.Players, 3)
	assert.Equal(t, []string{"player_1", "player_2", "player_3"}, []string{state.Players[0].ID, state.Players[1].ID, state.Players[2].ID})
	assert.Equal(t, "Rogue", state.Players[0].Class)
	assert.Equal(t, "campaign-1", state.Metadata.CampaignID)
	assert.Equal(t, "The Hollow Village", state.Metadata.SceneID)
	assert.NotEmpty(t, result.Metrics.Narrative)
	assert.GreaterOrEqual(t, len(result.Metrics.Suggestions), 2)
	require.Len(t, result.Snapshot.Memory.Chronicle, 1)

	saved, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, result.Snapshot, saved)
}

type failingBuilder struct {
	*narration.Procedural
}

func (failingBuilder) CreatePlayer(context.Context, models.Setting, models.World, string, int) (models.Player, error) {
	return models.Player{}, errors.New("no dice")
}

func TestInitializeFailsWhenAPlayerFails(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := newMachine(t, Options{Store: store, Builder: failingBuilder{narration.NewProcedural()}})

	_, err := m.Initialize(context.Background(), "s1", models.DefaultSetting())
	require.Error(t, err)
	_, err = store.Load(context.Background(), "s1")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestStartRoutesOnResumability(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	m := newMachine(t, Options{Store: store})
	ctx := context.Background()

	first, err := m.Start(ctx, "s1", models.DefaultSetting())
	require.NoError(t, err)
	assert.Equal(t, RouteInitialize, first.Metrics.Route)

	again, err := m.Start(ctx, "s1", models.DefaultSetting())
	require.NoError(t, err)
	assert.True(t, again.Metrics.Resumed)
	assert.Equal(t, first.Metrics.Narrative, again.Metrics.Narrative)

	broken := goblinSnapshot()
	broken.State.Players = nil
	require.NoError(t, store.Save(ctx, "s2", broken))
	_, err = m.Resume(ctx, "s2")
	require.ErrorIs(t, err, models.ErrNotResumable)
	assert.True(t, NeedsInitialization(err))

	fresh, err := m.Start(ctx, "s2", models.DefaultSetting())
	require.NoError(t, err)
	assert.Equal(t, RouteInitialize, fresh.Metrics.Route)
	assert.Len(t, fresh.Snapshot.State.Players, 3)
}

func TestStartAcceptsFreeFormSessionIDOnFileStore(t *testing.T) {
	store, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m := newMachine(t, Options{Store: store})
	ctx := context.Background()

	first, err := m.Start(ctx, "my campaign", models.DefaultSetting())
	require.NoError(t, err)
	assert.Equal(t, RouteInitialize, first.Metrics.Route)
	assert.Equal(t, "my campaign", first.Snapshot.SessionID)

	again, err := m.Continue(ctx, "my campaign")
	require.NoError(t, err)
	assert.True(t, again.Metrics.Resumed)
}

func TestExecuteTurnRejectsUninitializedState(t *testing.T) {
	m := newMachine(t, Options{})
	_, err := m.ExecuteTurn(context.Background(), "s1", checkpoint.Snapshot{}, "look")
	require.ErrorIs(t, err, models.ErrNotResumable)

	_, err = m.ExecuteTurn(context.Background(), " ", goblinSnapshot(), "look")
	require.ErrorIs(t, err, checkpoint.ErrSessionIDRequired)
}

func TestExplain(t *testing.T) {
	assert.Empty(t, Explain(nil))
	assert.Contains(t, Explain(ErrTurnInFlight), "Still resolving")
	assert.Contains(t, Explain(&PersistenceError{SessionID: "s", Err: errors.New("x")}), "could not be saved")
	assert.Contains(t, Explain(checkpoint.ErrNotFound), "No saved adventure")
	assert.Contains(t, Explain(context.Canceled), "interrupted")
	assert.Contains(t, Explain(errors.New("boom")), "Nothing was changed")
}

func TestTurnTracesEveryNode(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	m := newMachine(t, Options{Tracer: tp.Tracer("test")})

	result, err := m.ExecuteTurn(context.Background(), "s1", goblinSnapshot(), "where am I?")
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	want := make([]string, len(result.Metrics.Visited))
	for i, n := range result.Metrics.Visited {
		want[i] = "turn." + string(n)
	}
	assert.Equal(t, want, names)
}
