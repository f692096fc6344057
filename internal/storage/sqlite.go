package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/labelpr/internal/errors"
	"github.com/rohankatakam/labelpr/internal/logging"
	"github.com/rohankatakam/labelpr/internal/models"
)

// SQLiteStore keeps run history in a local SQLite database
type SQLiteStore struct {
	db     *sqlx.DB
	logger logrus.FieldLogger
}

// NewSQLiteStore opens (and creates if needed) the database at path
func NewSQLiteStore(path string, logger logrus.FieldLogger) (*SQLiteStore, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.StorageErrorf(err, "create history directory for %s", path)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, errors.StorageErrorf(err, "open history database %s", path)
	}

	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, errors.StorageError(err, "init history schema")
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		repo TEXT NOT NULL,
		notes_ref TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER,
		dry_run BOOLEAN,
		specs_failed INTEGER,
		prs_resolved INTEGER,
		labeled INTEGER,
		created INTEGER,
		updated INTEGER,
		skipped INTEGER,
		failed INTEGER,
		exit_code INTEGER
	);

	CREATE TABLE IF NOT EXISTS run_specs (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		spec TEXT NOT NULL,
		prs INTEGER,
		commits INTEGER,
		warnings INTEGER,
		error TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun implements Store
func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageError(err, "begin history transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO runs
		(id, repo, notes_ref, started_at, duration_ms, dry_run, specs_failed,
		 prs_resolved, labeled, created, updated, skipped, failed, exit_code)
		VALUES (:id, :repo, :notes_ref, :started_at, :duration_ms, :dry_run, :specs_failed,
		 :prs_resolved, :labeled, :created, :updated, :skipped, :failed, :exit_code)
	`
	if _, err := tx.NamedExecContext(ctx, query, run); err != nil {
		return errors.StorageErrorf(err, "save run %s", run.ID).WithContext("run", run.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_specs WHERE run_id = ?`, run.ID); err != nil {
		return errors.StorageErrorf(err, "clear specs of run %s", run.ID)
	}

	specQuery := `
		INSERT INTO run_specs (run_id, position, spec, prs, commits, warnings, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i := range run.Specs {
		spec := &run.Specs[i]
		spec.RunID = run.ID
		spec.Position = i
		_, err := tx.ExecContext(ctx, specQuery,
			spec.RunID, spec.Position, spec.Spec, spec.PRs, spec.Commits, spec.Warnings, spec.Error)
		if err != nil {
			return errors.StorageErrorf(err, "save spec %d of run %s", i, run.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.StorageError(err, "commit history transaction")
	}

	s.logger.WithFields(logrus.Fields{
		"run":   run.ID,
		"specs": len(run.Specs),
	}).Debug("recorded run")
	return nil
}

const runColumns = `id, repo, notes_ref, started_at, duration_ms, dry_run, specs_failed,
	prs_resolved, labeled, created, updated, skipped, failed, exit_code`

// GetRun implements Store
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	err := s.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.StorageErrorf(err, "get run %s", id)
	}

	if err := s.loadSpecs(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns implements Store. A limit below one lists every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	if limit < 1 {
		limit = -1
	}

	var runs []*models.Run
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id LIMIT ?`
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, errors.StorageError(err, "list runs")
	}

	for _, run := range runs {
		if err := s.loadSpecs(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *SQLiteStore) loadSpecs(ctx context.Context, run *models.Run) error {
	query := `
		SELECT run_id, position, spec, prs, commits, warnings, error
		FROM run_specs WHERE run_id = ? ORDER BY position
	`
	if err := s.db.SelectContext(ctx, &run.Specs, query, run.ID); err != nil {
		return errors.StorageErrorf(err, "load specs of run %s", run.ID)
	}
	return nil
}
