// Package storage persists run history to a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/brewvault/pkg/backup"
	"github.com/dshills/brewvault/pkg/config"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteRunRepository implements backup.RunRepository using SQLite storage.
// Provides persistent run history with efficient recent-first querying.
type SQLiteRunRepository struct {
	db *sql.DB
}

// NewSQLiteRunRepository creates a new SQLite-based run repository at the
// default history location (~/.brewvault/history.db, or under
// $BREWVAULT_CONFIG_DIR when set).
func NewSQLiteRunRepository() (*SQLiteRunRepository, error) {
	dbPath, err := config.HistoryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate history database: %w", err)
	}
	return NewSQLiteRunRepositoryWithPath(dbPath)
}

// NewSQLiteRunRepositoryWithPath creates a repository with a custom database path.
// Useful for testing.
func NewSQLiteRunRepositoryWithPath(dbPath string) (*SQLiteRunRepository, error) {
	// Create directory if it doesn't exist
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	// Initialize database schema
	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteRunRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteRunRepository) Close() error {
	return r.db.Close()
}

// Save persists a run record to the database.
// Updates the record if it already exists (based on ID).
func (r *SQLiteRunRepository) Save(ctx context.Context, record *backup.RunRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil run record")
	}
	if record.ID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}

	var steps sql.NullString
	if len(record.Steps) > 0 {
		data, err := json.Marshal(record.Steps)
		if err != nil {
			return fmt.Errorf("failed to serialize steps: %w", err)
		}
		steps.Valid = true
		steps.String = string(data)
	}

	var artifactSHA, commitHash sql.NullString
	if record.ArtifactSHA256 != "" {
		artifactSHA.Valid = true
		artifactSHA.String = record.ArtifactSHA256
	}
	if record.CommitHash != "" {
		commitHash.Valid = true
		commitHash.String = record.CommitHash
	}

	query := `
		INSERT INTO runs (
			id, started_at, finished_at, status, exit_code,
			artifact_sha256, artifact_bytes, commit_hash, dry_run, steps
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			status = excluded.status,
			exit_code = excluded.exit_code,
			artifact_sha256 = excluded.artifact_sha256,
			artifact_bytes = excluded.artifact_bytes,
			commit_hash = excluded.commit_hash,
			dry_run = excluded.dry_run,
			steps = excluded.steps
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.StartedAt,
		record.FinishedAt,
		record.Status,
		record.ExitCode,
		artifactSHA,
		record.ArtifactBytes,
		commitHash,
		record.DryRun,
		steps,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// Get retrieves a run record by its ID.
func (r *SQLiteRunRepository) Get(ctx context.Context, id string) (*backup.RunRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("run ID cannot be empty")
	}

	query := `
		SELECT id, started_at, finished_at, status, exit_code,
		       artifact_sha256, artifact_bytes, commit_hash, dry_run, steps
		FROM runs
		WHERE id = ?
	`

	record, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	return record, nil
}

// List returns run records ordered by StartedAt descending (most recent
// first). A limit of 0 or less returns every record.
func (r *SQLiteRunRepository) List(ctx context.Context, limit int) ([]*backup.RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, status, exit_code,
		       artifact_sha256, artifact_bytes, commit_hash, dry_run, steps
		FROM runs
		ORDER BY started_at DESC, id
	`

	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*backup.RunRecord, 0)

	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return records, nil
}

// Prune deletes all but the most recent keep run records.
func (r *SQLiteRunRepository) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("keep cannot be negative")
	}

	query := `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
		)
	`

	if _, err := r.db.ExecContext(ctx, query, keep); err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}

	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRun reads one runs row into a RunRecord.
func scanRun(s scanner) (*backup.RunRecord, error) {
	var record backup.RunRecord
	var artifactSHA, commitHash, steps sql.NullString

	err := s.Scan(
		&record.ID,
		&record.StartedAt,
		&record.FinishedAt,
		&record.Status,
		&record.ExitCode,
		&artifactSHA,
		&record.ArtifactBytes,
		&commitHash,
		&record.DryRun,
		&steps,
	)
	if err != nil {
		return nil, err
	}

	if artifactSHA.Valid {
		record.ArtifactSHA256 = artifactSHA.String
	}
	if commitHash.Valid {
		record.CommitHash = commitHash.String
	}
	if steps.Valid {
		var parsed []backup.StepRecord
		if err := json.Unmarshal([]byte(steps.String), &parsed); err == nil {
			record.Steps = parsed
		}
	}

	return &record, nil
}
