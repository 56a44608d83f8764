package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/atrium-run/atrium/internal/core"
)

// JSONStore is the plain-file SessionStore backend: one JSON file per
// session under <dir>/sessions, plus a per-project pointer file recording
// the most recently created session. It exists for debugging ("what does
// the session actually look like") and as a bootstrap path before the
// SQLite schema is migrated; it is not meant to serve concurrent writers
// the way SQLiteStore's single-writer/WAL setup does, so every mutation is
// serialised behind a single in-process mutex and persisted with an atomic
// rename so a crash mid-write never corrupts the file on disk.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// jsonEnvelope wraps a session with a format version, mirroring the
// envelope the sqlite schema gets for free from its column set.
type jsonEnvelope struct {
	Version   int           `json:"version"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Session   *core.Session `json:"session"`
}

// OpenJSON creates (if absent) dir and its sessions/ subdirectory and
// returns a JSONStore rooted there.
func OpenJSON(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "sessions"), 0o750); err != nil {
		return nil, fmt.Errorf("creating session store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "active"), 0o750); err != nil {
		return nil, fmt.Errorf("creating active-pointer directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) sessionPath(id string) string {
	return filepath.Join(s.dir, "sessions", id+".json")
}

func (s *JSONStore) activePath(project string) string {
	return filepath.Join(s.dir, "active", project+".json")
}

func (s *JSONStore) save(sess *core.Session) error {
	env := jsonEnvelope{Version: 1, UpdatedAt: time.Now(), Session: sess}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return renameio.WriteFile(s.sessionPath(sess.ID), data, 0o600)
}

func (s *JSONStore) load(id string) (*core.Session, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing session %s: %w", id, err)
	}
	return env.Session, nil
}

type activePointer struct {
	SessionID string `json:"sessionId"`
}

func (s *JSONStore) setActivePointer(project, sessionID string) error {
	data, err := json.Marshal(activePointer{SessionID: sessionID})
	if err != nil {
		return err
	}
	return renameio.WriteFile(s.activePath(project), data, 0o600)
}

func (s *JSONStore) readActivePointer(project string) (string, error) {
	data, err := os.ReadFile(s.activePath(project))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var p activePointer
	if err := json.Unmarshal(data, &p); err != nil {
		return "", err
	}
	return p.SessionID, nil
}

func (s *JSONStore) mutate(sessionID string, fn func(*core.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load(sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return core.ErrNotFound("session", sessionID)
	}
	if err := fn(sess); err != nil {
		return err
	}
	return s.save(sess)
}

func (s *JSONStore) Create(ctx context.Context, project, phase string, taskIDs []core.TaskID) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := core.NewSession(uuid.NewString(), project, phase, taskIDs)
	if err := s.save(sess); err != nil {
		return nil, err
	}
	if err := s.setActivePointer(project, sess.ID); err != nil {
		return nil, fmt.Errorf("recording active pointer: %w", err)
	}
	return sess, nil
}

func (s *JSONStore) GetActive(ctx context.Context, project string) (*core.Session, error) {
	s.mu.Lock()
	id, err := s.readActivePointer(project)
	s.mu.Unlock()
	if err != nil || id == "" {
		return nil, err
	}
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil || !sess.IsActive() {
		return nil, err
	}
	return sess, nil
}

func (s *JSONStore) Get(ctx context.Context, sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(sessionID)
}

func (s *JSONStore) ListAll(ctx context.Context, project string) ([]*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("listing sessions directory: %w", err)
	}
	var out []*core.Session
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		sess, err := s.load(id)
		if err != nil || sess == nil || sess.Project != project {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (s *JSONStore) StartTask(ctx context.Context, sessionID string, taskID core.TaskID) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		return sess.StartTask(taskID)
	})
}

func (s *JSONStore) Checkpoint(ctx context.Context, sessionID string, taskID core.TaskID, status core.CheckpointStatus, prLink string, duration time.Duration, errMsg string) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		ts := time.Now()
		if sess.LastCheckpointAt != nil && !ts.After(*sess.LastCheckpointAt) {
			ts = sess.LastCheckpointAt.Add(time.Microsecond)
		}
		sess.Checkpoint(taskID, status, ts, prLink, duration.Milliseconds(), errMsg)
		return nil
	})
}

func (s *JSONStore) RecordError(ctx context.Context, sessionID string, taskID core.TaskID, msg string) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		sess.RecordError(taskID, msg)
		return nil
	})
}

func (s *JSONStore) ResolveError(ctx context.Context, sessionID string, taskID core.TaskID) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		sess.ResolveError(taskID)
		return nil
	})
}

func (s *JSONStore) RegisterWorktree(ctx context.Context, sessionID string, taskID core.TaskID, path string) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		sess.RegisterWorktree(taskID, path)
		return nil
	})
}

func (s *JSONStore) RegisterBranch(ctx context.Context, sessionID string, taskID core.TaskID, branch string) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		sess.RegisterBranch(taskID, branch)
		return nil
	})
}

func (s *JSONStore) RegisterPR(ctx context.Context, sessionID string, taskID core.TaskID, url string) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		sess.RegisterPR(taskID, url)
		return nil
	})
}

// ResumeInterruptedTask implements the orchestrate.ResumePoint extension so
// JSONStore gets the same atomic crash-recovery move SQLiteStore gets.
func (s *JSONStore) ResumeInterruptedTask(ctx context.Context, sessionID string) error {
	return s.mutate(sessionID, func(sess *core.Session) error {
		sess.PrependCurrentToPending()
		return nil
	})
}

func (s *JSONStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.sessionPath(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

var _ core.SessionStore = (*JSONStore)(nil)
