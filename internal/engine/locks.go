package engine

import (
	"context"
	"fmt"
	"sync"
)

// TurnPolicy decides what happens to a turn that arrives while another
// turn for the same session is running.
type TurnPolicy string

const (
	PolicyReject TurnPolicy = "reject"
	PolicyQueue  TurnPolicy = "queue"
)

// ParseTurnPolicy accepts "reject" or "queue".
func ParseTurnPolicy(s string) (TurnPolicy, error) {
	switch p := TurnPolicy(s); p {
	case PolicyReject, PolicyQueue:
		return p, nil
	}
	return "", fmt.Errorf("unknown turn policy %q", s)
}

// sessionLocks hands out one single-slot semaphore per session id. idle,
// when set, runs under the lock once the last holder or waiter of a
// session lets go.
type sessionLocks struct {
	policy TurnPolicy
	idle   func(sessionID string)

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func newSessionLocks(policy TurnPolicy, idle func(sessionID string)) *sessionLocks {
	if policy == "" {
		policy = PolicyReject
	}
	return &sessionLocks{policy: policy, idle: idle, slots: make(map[string]*slot)}
}

// acquire takes the session's slot and returns its release func.
func (l *sessionLocks) acquire(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[sessionID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[sessionID] = s
	}
	s.refs++
	l.mu.Unlock()

	if l.policy == PolicyReject {
		select {
		case s.ch <- struct{}{}:
		default:
			l.unref(sessionID, s)
			return nil, ErrTurnInFlight
		}
	} else {
		select {
		case s.ch <- struct{}{}:
		case <-ctx.Done():
			l.unref(sessionID, s)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(sessionID, s)
		})
	}, nil
}

func (l *sessionLocks) unref(sessionID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, sessionID)
		if l.idle != nil {
			l.idle(sessionID)
		}
	}
}

// waiting reports how many callers hold or wait for the session's slot.
func (l *sessionLocks) waiting(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.slots[sessionID]; ok {
		return s.refs
	}
	return 0
}
