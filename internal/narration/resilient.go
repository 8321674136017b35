package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/dungeon-master/internal/models"
)

// CollaboratorError reports a narrator that never produced a usable response.
type CollaboratorError struct {
	Attempts int
	Err      error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("narration failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// ErrMalformedResponse marks a reply that parsed but is not usable.
var ErrMalformedResponse = errors.New("malformed narration response")

// RetryPolicy bounds calls to a narrator.
type RetryPolicy struct {
	MaxAttempts int
	// Delay before the second attempt; doubled after every failure.
	Delay   time.Duration
	Timeout time.Duration
}

// DefaultRetryPolicy is three attempts starting at 200ms, 30s each.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 200 * time.Millisecond, Timeout: 30 * time.Second}
}

// Resilient wraps a Gateway with bounded retries and the neutral fallback.
// Narrate never returns an error.
type Resilient struct {
	next   Gateway
	policy RetryPolicy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewResilient wraps next.
func NewResilient(next Gateway, policy RetryPolicy, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Resilient{next: next, policy: policy, logger: logger, sleep: sleepCtx}
}

// Narrate tries the wrapped gateway until it returns a valid response, the
// attempts run out, or ctx ends. Failures yield Fallback().
func (r *Resilient) Narrate(ctx context.Context, req Request) (Response, error) {
	resp, err := r.try(ctx, req)
	if err != nil {
		r.logger.Warn("narration fell back to neutral response",
			zap.String("session_id", req.SessionID),
			zap.String("kind", string(req.Kind)),
			zap.Error(err),
		)
		return Fallback(), nil
	}
	return resp, nil
}

func (r *Resilient) try(ctx context.Context, req Request) (Response, error) {
	if r.next == nil {
		return Response{}, &CollaboratorError{Err: errors.New("no narrator configured")}
	}
	delay := r.policy.Delay
	var last error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if attempt > 1 && delay > 0 {
			if err := r.sleep(ctx, delay); err != nil {
				return Response{}, &CollaboratorError{Attempts: attempt - 1, Err: err}
			}
			delay *= 2
		}
		resp, err := r.call(ctx, req)
		if err == nil {
			err = validate(&resp)
		}
		if err == nil {
			return resp, nil
		}
		last = err
		r.logger.Debug("narration attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			return Response{}, &CollaboratorError{Attempts: attempt, Err: ctx.Err()}
		}
	}
	return Response{}, &CollaboratorError{Attempts: r.policy.MaxAttempts, Err: last}
}

func (r *Resilient) call(ctx context.Context, req Request) (Response, error) {
	if r.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()
	}
	return r.next.Narrate(ctx, req)
}

// validate normalises resp in place and rejects unusable replies.
func validate(resp *Response) error {
	resp.Narrative, resp.Suggestions = SplitSuggestions(resp.Narrative, resp.Suggestions)
	resp.Narrative = strings.TrimSpace(resp.Narrative)
	resp.Suggestions = CleanSuggestions(resp.Suggestions)
	if resp.Narrative == "" {
		return fmt.Errorf("%w: empty narrative", ErrMalformedResponse)
	}
	if len(resp.Suggestions) < 2 {
		return fmt.Errorf("%w: %d suggestion(s)", ErrMalformedResponse, len(resp.Suggestions))
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FallbackBuilder tries primary and, stage by stage, falls back to the
// procedural builder when it fails.
type FallbackBuilder struct {
	primary  WorldBuilder
	fallback *Procedural
	logger   *zap.Logger
}

// NewFallbackBuilder wraps primary.
func NewFallbackBuilder(primary WorldBuilder, logger *zap.Logger) *FallbackBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackBuilder{primary: primary, fallback: NewProcedural(), logger: logger}
}

func (b *FallbackBuilder) warn(stage string, err error) {
	b.logger.Warn("world builder fell back to procedural", zap.String("stage", stage), zap.Error(err))
}

func (b *FallbackBuilder) PlanNarrative(ctx context.Context, setting models.Setting) (models.Narrative, error) {
	n, err := b.primary.PlanNarrative(ctx, setting)
	if err == nil && n.Title != "" {
		return n, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: narrative without title", ErrMalformedResponse)
	}
	b.warn("plan-narrative", err)
	return b.fallback.PlanNarrative(ctx, setting)
}

func (b *FallbackBuilder) BuildLore(ctx context.Context, setting models.Setting, narrative models.Narrative) ([]models.Region, error) {
	regions, err := b.primary.BuildLore(ctx, setting, narrative)
	if err == nil && len(regions) > 0 {
		return regions, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: no regions", ErrMalformedResponse)
	}
	b.warn("build-lore", err)
	return b.fallback.BuildLore(ctx, setting, narrative)
}

func (b *FallbackBuilder) InstantiateWorld(ctx context.Context, setting models.Setting, narrative models.Narrative, regions []models.Region) (models.World, error) {
	w, err := b.primary.InstantiateWorld(ctx, setting, narrative, regions)
	if err == nil && len(w.Locations) > 0 {
		if len(w.Regions) == 0 {
			w.Regions = regions
		}
		return w, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: no locations", ErrMalformedResponse)
	}
	b.warn("instantiate-world", err)
	return b.fallback.InstantiateWorld(ctx, setting, narrative, regions)
}

func (b *FallbackBuilder) CreatePlayer(ctx context.Context, setting models.Setting, world models.World, concept string, index int) (models.Player, error) {
	p, err := b.primary.CreatePlayer(ctx, setting, world, concept, index)
	if err == nil && p.ID != "" {
		return p, nil
	}
	if err == nil {
		err = fmt.Errorf("%w: player without id", ErrMalformedResponse)
	}
	b.warn("create-player", err)
	return b.fallback.CreatePlayer(ctx, setting, world, concept, index)
}
