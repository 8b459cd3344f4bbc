package runstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"dubber/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; a mismatched database
// must be deleted and recreated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates no run matched the lookup.
var ErrNotFound = errors.New("run not found")

// Store persists dubbing runs in SQLite. A file lock next to the database
// keeps concurrent dubber processes from interleaving stage work.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the run database under the log directory,
// acquiring the single-writer lock.
func Open(cfg *config.Config) (*Store, error) {
	return open(cfg, true)
}

// OpenReadOnly connects without taking the writer lock, for inspection
// commands that may run alongside an active pipeline.
func OpenReadOnly(cfg *config.Config) (*Store, error) {
	return open(cfg, false)
}

func open(cfg *config.Config, withLock bool) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := filepath.Join(cfg.Paths.LogDir, "runs.db")
	var lock *flock.Flock
	if withLock {
		lock = flock.New(dbPath + ".lock")
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run store lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("run store at %s is locked by another dubber process", dbPath)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		unlock(lock)
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			unlock(lock)
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		unlock(lock)
		return nil, err
	}
	return store, nil
}

func unlock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the store lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}
	return err
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

const runColumns = `id, run_id, video_path, sub_path, status,
	segments_path, clips_dir, audio_path, output_path, lipsync_job_id,
	error_message, created_at, updated_at`

// NewRun inserts a pending run for a video and its subtitle file.
func (s *Store) NewRun(ctx context.Context, videoPath, subPath string) (*Run, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	runID := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, video_path, sub_path, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, videoPath, subPath, StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a run by its row id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	return scanRun(row)
}

// GetByRunID fetches a run by its public identifier.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
	return scanRun(row)
}

// List returns runs, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += " WHERE status IN (?" + sqlPlaceholders(len(statuses)-1) + ")"
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += " ORDER BY id DESC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Update persists all mutable fields of a run.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("nil run")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, segments_path = ?, clips_dir = ?, audio_path = ?,
			output_path = ?, lipsync_job_id = ?, error_message = ?, updated_at = ?
		 WHERE id = ?`,
		run.Status,
		nullable(run.SegmentsPath),
		nullable(run.ClipsDir),
		nullable(run.AudioPath),
		nullable(run.OutputPath),
		nullable(run.LipsyncJobID),
		nullable(run.ErrorMessage),
		now.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	run.UpdatedAt = now
	return nil
}

// Transition moves a run from one status to another, failing if its current
// status does not match. The guard keeps two processes from both executing
// the same stage.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		to, time.Now().UTC().Format(time.RFC3339Nano), id, from,
	)
	if err != nil {
		return fmt.Errorf("transition run %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition run %d: %w", id, err)
	}
	if affected == 0 {
		run, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("run %d is %s, expected %s", id, run.Status, from)
	}
	return nil
}

// MarkFailed records the failure message and moves the run to failed.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		StatusFailed, message, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("mark run %d failed: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetStuck rolls runs left in a processing status back to the preceding
// stable status. Called at startup after an unclean shutdown.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	var total int64
	for from, to := range processingRollbacks {
		res, err := s.db.ExecContext(ctx,
			"UPDATE runs SET status = ?, updated_at = ? WHERE status = ?",
			to, time.Now().UTC().Format(time.RFC3339Nano), from,
		)
		if err != nil {
			return total, fmt.Errorf("reset %s runs: %w", from, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("reset %s runs: %w", from, err)
		}
		total += affected
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		segments  sql.NullString
		clips     sql.NullString
		audio     sql.NullString
		output    sql.NullString
		jobID     sql.NullString
		errMsg    sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&run.ID, &run.RunID, &run.VideoPath, &run.SubPath, &run.Status,
		&segments, &clips, &audio, &output, &jobID, &errMsg, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.SegmentsPath = segments.String
	run.ClipsDir = clips.String
	run.AudioPath = audio.String
	run.OutputPath = output.String
	run.LipsyncJobID = jobID.String
	run.ErrorMessage = errMsg.String
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &run, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func sqlPlaceholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
