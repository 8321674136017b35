// Package checkpoint persists turn snapshots keyed by session id.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tatianab/dungeon-master/internal/memory"
	"github.com/tatianab/dungeon-master/internal/models"
	"github.com/tatianab/dungeon-master/internal/pacing"
)

// SchemaVersion stamps every stored snapshot. Snapshots written under a
// different version are not resumed.
const SchemaVersion = 1

var (
	// ErrNotFound means the session has never been saved.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrIncompatibleSnapshot means a stored snapshot cannot be decoded
	// into the current schema.
	ErrIncompatibleSnapshot = errors.New("checkpoint has an incompatible schema")
	// ErrSessionIDRequired indicates a blank session id.
	ErrSessionIDRequired = errors.New("session id is required")
)

// Snapshot is everything needed to resume a session after a restart.
type Snapshot struct {
	SchemaVersion int                  `yaml:"schema_version" json:"schema_version"`
	SessionID     string               `yaml:"session_id" json:"session_id"`
	SavedAt       time.Time            `yaml:"saved_at" json:"saved_at"`
	State         models.GameState     `yaml:"state" json:"state"`
	Memory        memory.SessionMemory `yaml:"memory" json:"memory"`
	Pacing        pacing.Metrics       `yaml:"pacing" json:"pacing"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.State = *s.State.Clone()
	out.Memory = *s.Memory.Clone()
	out.Pacing = s.Pacing.Clone()
	return out
}

// Summary describes a stored session for listings.
type Summary struct {
	SessionID string
	Title     string
	Turn      int
	SavedAt   time.Time
}

func summarize(s Snapshot) Summary {
	title := ""
	if s.State.Narrative != nil {
		title = s.State.Narrative.Title
	}
	return Summary{
		SessionID: s.SessionID,
		Title:     title,
		Turn:      s.State.Metadata.Turn,
		SavedAt:   s.SavedAt,
	}
}

// Store is a keyed snapshot store. Save replaces the previous snapshot as a
// whole or not at all.
type Store interface {
	Load(ctx context.Context, sessionID string) (Snapshot, error)
	Save(ctx context.Context, sessionID string, snapshot Snapshot) error
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

func normalizeID(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrSessionIDRequired
	}
	return id, nil
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// prepare stamps the id and schema version onto a snapshot before writing.
func prepare(sessionID string, snapshot Snapshot) Snapshot {
	snapshot.SessionID = sessionID
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	return snapshot
}

func checkVersion(s Snapshot) error {
	if s.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrIncompatibleSnapshot, s.SchemaVersion, SchemaVersion)
	}
	return nil
}
