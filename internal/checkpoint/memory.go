package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string]Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]Snapshot)}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	if err := checkContext(ctx); err != nil {
		return Snapshot{}, err
	}
	id, err := normalizeID(sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.snapshots[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if err := checkVersion(snap); err != nil {
		return Snapshot{}, err
	}
	return snap.Clone(), nil
}

// Save stores a copy of snapshot.
func (m *MemoryStore) Save(ctx context.Context, sessionID string, snapshot Snapshot) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	snap := prepare(id, snapshot.Clone())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[id] = snap
	return nil
}

// List returns every stored session, newest first.
func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Summary, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		out = append(out, summarize(snap))
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes a session. Deleting an absent session returns ErrNotFound.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	id, err := normalizeID(sessionID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snapshots[id]; !ok {
		return ErrNotFound
	}
	delete(m.snapshots, id)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].SavedAt.Equal(s[j].SavedAt) {
			return s[i].SessionID < s[j].SessionID
		}
		return s[i].SavedAt.After(s[j].SavedAt)
	})
}
