// Package store provides the crash-safe, resumable session persistence
// layer described in spec §4.5: a single-writer SQLite-backed store with
// strict ordering guarantees between checkpoints and on-disk side effects.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/atrium-run/atrium/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.SessionStore over an embedded SQLite
// database: one write connection (SQLite allows only one writer) and a
// pool of read-only connections, matching the teacher's split-connection
// discipline for avoiding SQLITE_BUSY under concurrent reads.
type SQLiteStore struct {
	db     *sql.DB // write connection, MaxOpenConns=1
	readDB *sql.DB // read-only pool

	maxRetries    int
	baseRetryWait time.Duration

	mu       sync.Mutex // serializes the monotonic-timestamp bump below
	lastTS   map[string]time.Time
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithRetry overrides the busy-retry envelope (default 5 attempts, 100ms base).
func WithRetry(maxRetries int, baseWait time.Duration) Option {
	return func(s *SQLiteStore) {
		s.maxRetries = maxRetries
		s.baseRetryWait = baseWait
	}
}

// Open creates or opens the session store database at dbPath, running
// pending migrations.
func Open(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating session store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	readDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&mode=ro&_pragma=busy_timeout(1000)")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{
		db:            db,
		readDB:        readDB,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
		lastTS:        map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Close closes both database connections.
func (s *SQLiteStore) Close() error {
	var errs []error
	if err := s.readDB.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

// retryWrite executes fn, retrying with exponential backoff on SQLITE_BUSY.
// Every atomic transaction in this store goes through here, so a
// SessionWriteFailure (§7) is only ever reported after the retry budget is
// exhausted.
func (s *SQLiteStore) retryWrite(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		lastErr = err
		if attempt == s.maxRetries {
			break
		}
		wait := s.baseRetryWait * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), lastErr)
		case <-time.After(wait):
		}
	}
	return core.ErrSessionWriteFailure("", fmt.Errorf("%s: max retries exceeded: %w", op, lastErr))
}

// monotonicNow returns a timestamp guaranteed to be strictly later than the
// previous one handed out for sessionID, preserving the checkpoint ordering
// invariant (§3, §5) even when the wall clock doesn't advance between two
// calls within the same millisecond.
func (s *SQLiteStore) monotonicNow(sessionID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := s.lastTS[sessionID]; ok && !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	s.lastTS[sessionID] = now
	return now
}

// --- JSON (de)serialization helpers for the session's set/map fields ---

func marshalIDs(ids []core.TaskID) string {
	if ids == nil {
		ids = []core.TaskID{}
	}
	b, _ := json.Marshal(ids)
	return string(b)
}

func unmarshalIDs(raw string) []core.TaskID {
	var ids []core.TaskID
	if raw == "" {
		return []core.TaskID{}
	}
	_ = json.Unmarshal([]byte(raw), &ids)
	if ids == nil {
		ids = []core.TaskID{}
	}
	return ids
}

func marshalMap(m map[core.TaskID]string) string {
	if m == nil {
		m = map[core.TaskID]string{}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func unmarshalMap(raw string) map[core.TaskID]string {
	m := map[core.TaskID]string{}
	if raw == "" {
		return m
	}
	_ = json.Unmarshal([]byte(raw), &m)
	return m
}

func marshalErrors(m map[core.TaskID]*core.TaskError) string {
	if m == nil {
		m = map[core.TaskID]*core.TaskError{}
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func unmarshalErrors(raw string) map[core.TaskID]*core.TaskError {
	m := map[core.TaskID]*core.TaskError{}
	if raw == "" {
		return m
	}
	_ = json.Unmarshal([]byte(raw), &m)
	return m
}

// Create persists a new session with pendingTasks = taskIDs, in order.
func (s *SQLiteStore) Create(ctx context.Context, project, phase string, taskIDs []core.TaskID) (*core.Session, error) {
	sess := core.NewSession(uuid.NewString(), project, phase, taskIDs)
	err := s.retryWrite(ctx, "create session", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (
				id, project, phase, started_at, last_checkpoint_at, current_task,
				pending_tasks, completed_tasks, failed_tasks, worktrees, branches, prs, errors
			) VALUES (?, ?, ?, ?, NULL, NULL, ?, ?, ?, ?, ?, ?, ?)
		`,
			sess.ID, sess.Project, sess.Phase, sess.StartedAt,
			marshalIDs(sess.PendingTasks), marshalIDs(sess.CompletedTasks), marshalIDs(sess.FailedTasks),
			marshalMap(sess.Worktrees), marshalMap(sess.Branches), marshalMap(sess.PRs),
			marshalErrors(sess.Errors),
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// GetActive returns the most recently started session for project that
// still has pending work or a current task, or nil if none.
func (s *SQLiteStore) GetActive(ctx context.Context, project string) (*core.Session, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id FROM sessions WHERE project = ? ORDER BY started_at DESC LIMIT 1
	`, project)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	sess, err := s.Get(ctx, id)
	if err != nil || sess == nil {
		return nil, err
	}
	if !sess.IsActive() {
		return nil, nil
	}
	return sess, nil
}

// Get loads a session by id, including its checkpoint history.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*core.Session, error) {
	row := s.readDB.QueryRowContext(ctx, `
		SELECT id, project, phase, started_at, last_checkpoint_at, current_task,
		       pending_tasks, completed_tasks, failed_tasks, worktrees, branches, prs, errors
		FROM sessions WHERE id = ?
	`, sessionID)

	var (
		sess                                                             core.Session
		lastCheckpointAt                                                 sql.NullTime
		currentTask                                                      sql.NullString
		pendingRaw, completedRaw, failedRaw, worktreesRaw, branchesRaw    string
		prsRaw, errorsRaw                                                 string
	)
	err := row.Scan(
		&sess.ID, &sess.Project, &sess.Phase, &sess.StartedAt, &lastCheckpointAt, &currentTask,
		&pendingRaw, &completedRaw, &failedRaw, &worktreesRaw, &branchesRaw, &prsRaw, &errorsRaw,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if lastCheckpointAt.Valid {
		t := lastCheckpointAt.Time
		sess.LastCheckpointAt = &t
	}
	if currentTask.Valid {
		t := core.TaskID(currentTask.String)
		sess.CurrentTask = &t
	}
	sess.PendingTasks = unmarshalIDs(pendingRaw)
	sess.CompletedTasks = unmarshalIDs(completedRaw)
	sess.FailedTasks = unmarshalIDs(failedRaw)
	sess.Worktrees = unmarshalMap(worktreesRaw)
	sess.Branches = unmarshalMap(branchesRaw)
	sess.PRs = unmarshalMap(prsRaw)
	sess.Errors = unmarshalErrors(errorsRaw)

	cps, err := s.loadCheckpoints(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.Checkpoints = cps
	return &sess, nil
}

func (s *SQLiteStore) loadCheckpoints(ctx context.Context, sessionID string) ([]core.Checkpoint, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, timestamp, task_id, status, COALESCE(pr_link,''), COALESCE(duration_ms,0), COALESCE(error,'')
		FROM checkpoints WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}
	defer rows.Close()

	var out []core.Checkpoint
	for rows.Next() {
		var cp core.Checkpoint
		var status string
		if err := rows.Scan(&cp.ID, &cp.Timestamp, &cp.TaskID, &status, &cp.PRLink, &cp.DurationMS, &cp.Error); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		cp.SessionID = sessionID
		cp.Status = core.CheckpointStatus(status)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// ListAll returns every session for project, most-recently-started first.
func (s *SQLiteStore) ListAll(ctx context.Context, project string) ([]*core.Session, error) {
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id FROM sessions WHERE project = ? ORDER BY started_at DESC
	`, project)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()

	out := make([]*core.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			out = append(out, sess)
		}
	}
	return out, nil
}

// StartTask moves taskID out of pendingTasks and sets it current, atomically.
func (s *SQLiteStore) StartTask(ctx context.Context, sessionID string, taskID core.TaskID) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		return sess.StartTask(taskID)
	})
}

// Checkpoint appends a checkpoint, clears currentTask, and moves taskID into
// completedTasks/failedTasks — the last state-changing step of a task's
// pipeline per §5's write-visibility ordering guarantee.
func (s *SQLiteStore) Checkpoint(ctx context.Context, sessionID string, taskID core.TaskID, status core.CheckpointStatus, prLink string, duration time.Duration, errMsg string) error {
	ts := s.monotonicNow(sessionID)
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.Checkpoint(taskID, status, ts, prLink, duration.Milliseconds(), errMsg)
		return nil
	})
}

// RecordError initializes or increments the error ledger entry for taskID.
func (s *SQLiteStore) RecordError(ctx context.Context, sessionID string, taskID core.TaskID, msg string) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.RecordError(taskID, msg)
		return nil
	})
}

// ResolveError marks taskID's error ledger entry resolved.
func (s *SQLiteStore) ResolveError(ctx context.Context, sessionID string, taskID core.TaskID) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.ResolveError(taskID)
		return nil
	})
}

// RegisterWorktree records the worktree path side-effect for taskID.
func (s *SQLiteStore) RegisterWorktree(ctx context.Context, sessionID string, taskID core.TaskID, path string) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.RegisterWorktree(taskID, path)
		return nil
	})
}

// RegisterBranch records the branch name side-effect for taskID.
func (s *SQLiteStore) RegisterBranch(ctx context.Context, sessionID string, taskID core.TaskID, branch string) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.RegisterBranch(taskID, branch)
		return nil
	})
}

// RegisterPR records the pull-request URL side-effect for taskID.
func (s *SQLiteStore) RegisterPR(ctx context.Context, sessionID string, taskID core.TaskID, url string) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.RegisterPR(taskID, url)
		return nil
	})
}

// ResumeInterruptedTask implements orchestrate.ResumePoint: it prepends
// currentTask back onto pendingTasks and clears currentTask, atomically —
// the crash-recovery move spec §4.7's resume algorithm requires.
func (s *SQLiteStore) ResumeInterruptedTask(ctx context.Context, sessionID string) error {
	return s.mutate(ctx, sessionID, func(sess *core.Session) error {
		sess.PrependCurrentToPending()
		return nil
	})
}

// Delete cascade-deletes a session's checkpoints, then the session itself.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	return s.retryWrite(ctx, "delete session", func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
		return err
	})
}

// mutate loads sess, applies fn to the in-memory value, and persists the
// full row (including any new checkpoint) in a single transaction — this is
// the "single atomic transaction" §4.5 requires for every session mutation.
func (s *SQLiteStore) mutate(ctx context.Context, sessionID string, fn func(*core.Session) error) error {
	return s.retryWrite(ctx, "mutate session", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		sess, err := s.getTx(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return core.ErrNotFound("session", sessionID)
		}
		beforeCheckpoints := len(sess.Checkpoints)
		if err := fn(sess); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET
				last_checkpoint_at = ?, current_task = ?,
				pending_tasks = ?, completed_tasks = ?, failed_tasks = ?,
				worktrees = ?, branches = ?, prs = ?, errors = ?
			WHERE id = ?
		`,
			nullableTime(sess.LastCheckpointAt), nullableTaskID(sess.CurrentTask),
			marshalIDs(sess.PendingTasks), marshalIDs(sess.CompletedTasks), marshalIDs(sess.FailedTasks),
			marshalMap(sess.Worktrees), marshalMap(sess.Branches), marshalMap(sess.PRs),
			marshalErrors(sess.Errors),
			sess.ID,
		); err != nil {
			return fmt.Errorf("updating session: %w", err)
		}

		for _, cp := range sess.Checkpoints[beforeCheckpoints:] {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO checkpoints (session_id, timestamp, task_id, status, pr_link, duration_ms, error)
				VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''))
			`, sess.ID, cp.Timestamp, cp.TaskID, string(cp.Status), cp.PRLink, cp.DurationMS, cp.Error); err != nil {
				return fmt.Errorf("inserting checkpoint: %w", err)
			}
		}

		return tx.Commit()
	})
}

func (s *SQLiteStore) getTx(ctx context.Context, tx *sql.Tx, sessionID string) (*core.Session, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, project, phase, started_at, last_checkpoint_at, current_task,
		       pending_tasks, completed_tasks, failed_tasks, worktrees, branches, prs, errors
		FROM sessions WHERE id = ?
	`, sessionID)

	var (
		sess              core.Session
		lastCheckpointAt  sql.NullTime
		currentTask       sql.NullString
		pendingRaw, completedRaw, failedRaw, worktreesRaw, branchesRaw, prsRaw, errorsRaw string
	)
	err := row.Scan(
		&sess.ID, &sess.Project, &sess.Phase, &sess.StartedAt, &lastCheckpointAt, &currentTask,
		&pendingRaw, &completedRaw, &failedRaw, &worktreesRaw, &branchesRaw, &prsRaw, &errorsRaw,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session for mutation: %w", err)
	}
	if lastCheckpointAt.Valid {
		t := lastCheckpointAt.Time
		sess.LastCheckpointAt = &t
	}
	if currentTask.Valid {
		t := core.TaskID(currentTask.String)
		sess.CurrentTask = &t
	}
	sess.PendingTasks = unmarshalIDs(pendingRaw)
	sess.CompletedTasks = unmarshalIDs(completedRaw)
	sess.FailedTasks = unmarshalIDs(failedRaw)
	sess.Worktrees = unmarshalMap(worktreesRaw)
	sess.Branches = unmarshalMap(branchesRaw)
	sess.PRs = unmarshalMap(prsRaw)
	sess.Errors = unmarshalErrors(errorsRaw)

	cpRows, err := tx.QueryContext(ctx, `
		SELECT id, timestamp, task_id, status, COALESCE(pr_link,''), COALESCE(duration_ms,0), COALESCE(error,'')
		FROM checkpoints WHERE session_id = ? ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints for mutation: %w", err)
	}
	defer cpRows.Close()
	for cpRows.Next() {
		var cp core.Checkpoint
		var status string
		if err := cpRows.Scan(&cp.ID, &cp.Timestamp, &cp.TaskID, &status, &cp.PRLink, &cp.DurationMS, &cp.Error); err != nil {
			return nil, fmt.Errorf("scanning checkpoint for mutation: %w", err)
		}
		cp.SessionID = sessionID
		cp.Status = core.CheckpointStatus(status)
		sess.Checkpoints = append(sess.Checkpoints, cp)
	}
	return &sess, cpRows.Err()
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableTaskID(id *core.TaskID) interface{} {
	if id == nil {
		return nil
	}
	return string(*id)
}

var _ core.SessionStore = (*SQLiteStore)(nil)
