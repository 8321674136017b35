package checkpoint

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const snapshotFile = "checkpoint.yaml"

// FileStore keeps one YAML snapshot per session under dir/<encoded id>/.
// The directory name is the unpadded base64url form of the id, so any id
// maps to a single path element; the raw id lives in the snapshot.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("save directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) sessionDir(sessionID string) (string, string, error) {
	id, err := normalizeID(sessionID)
	if err != nil {
		return "", "", err
	}
	return id, filepath.Join(f.dir, dirName(id)), nil
}

func dirName(sessionID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(sessionID))
}

// Load reads the session's snapshot file.
func (f *FileStore) Load(ctx context.Context, sessionID string) (Snapshot, error) {
	if err := checkContext(ctx); err != nil {
		return Snapshot{}, err
	}
	_, dir, err := f.sessionDir(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	return loadDir(dir)
}

func loadDir(dir string) (Snapshot, error) {
	data, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read checkpoint: %w", err)
	}

	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
	}
	if err := checkVersion(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Save writes the snapshot to a temporary file and renames it over the
// previous one, so readers see either the old or the new snapshot.
func (f *FileStore) Save(ctx context.Context, sessionID string, snapshot Snapshot) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	id, dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(prepare(id, snapshot))
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, snapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, snapshotFile)); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// List scans the save directory for sessions with a snapshot file.
func (f *FileStore) List(ctx context.Context) ([]Summary, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []Summary{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snap, err := loadDir(filepath.Join(f.dir, entry.Name()))
		if err != nil || dirName(snap.SessionID) != entry.Name() {
			// Foreign directories and stale schemas are not sessions.
			continue
		}
		out = append(out, summarize(snap))
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes the session directory.
func (f *FileStore) Delete(ctx context.Context, sessionID string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	_, dir, err := f.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, snapshotFile)); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return os.RemoveAll(dir)
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }
