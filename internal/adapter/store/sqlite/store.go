package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/haosenchai9-afk/workflow-verify/internal/store"
)

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per verification run
	CREATE TABLE IF NOT EXISTS verifications (
		verification_id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		repository TEXT NOT NULL,
		workflow TEXT NOT NULL,
		passed INTEGER NOT NULL
	);

	-- Per-dimension outcomes of a verification
	CREATE TABLE IF NOT EXISTS reports (
		report_id INTEGER PRIMARY KEY AUTOINCREMENT,
		verification_id INTEGER NOT NULL,
		dimension TEXT NOT NULL,
		passed INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		errors TEXT,
		FOREIGN KEY (verification_id) REFERENCES verifications(verification_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_reports_verification ON reports(verification_id);
	CREATE INDEX IF NOT EXISTS idx_verifications_timestamp ON verifications(timestamp DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// errorSeparator joins report error lines for storage. Error messages
// never contain newlines, so the round trip is lossless.
const errorSeparator = "\n"

// SaveVerification records a verification and its reports in one transaction.
func (s *Store) SaveVerification(ctx context.Context, v store.Verification) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO verifications (timestamp, repository, workflow, passed) VALUES (?, ?, ?, ?)`,
		v.Timestamp.Unix(),
		v.Repository,
		v.Workflow,
		boolToInt(v.Passed),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save verification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get verification ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reports (verification_id, dimension, passed, skipped, errors) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range v.Reports {
		if _, err := stmt.ExecContext(ctx,
			id,
			r.Dimension,
			boolToInt(r.Passed),
			boolToInt(r.Skipped),
			strings.Join(r.Errors, errorSeparator),
		); err != nil {
			return 0, fmt.Errorf("failed to insert report: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// ListVerifications retrieves the most recent verifications, newest first.
func (s *Store) ListVerifications(ctx context.Context, limit int) ([]store.Verification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT verification_id, timestamp, repository, workflow, passed
		FROM verifications
		ORDER BY timestamp DESC, verification_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	var verifications []store.Verification
	for rows.Next() {
		var v store.Verification
		var timestamp int64
		var passed int

		if err := rows.Scan(&v.ID, &timestamp, &v.Repository, &v.Workflow, &passed); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}

		v.Timestamp = time.Unix(timestamp, 0)
		v.Passed = passed == 1
		verifications = append(verifications, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verifications: %w", err)
	}

	for i := range verifications {
		reports, err := s.reportsFor(ctx, verifications[i].ID)
		if err != nil {
			return nil, err
		}
		verifications[i].Reports = reports
	}

	return verifications, nil
}

func (s *Store) reportsFor(ctx context.Context, verificationID int64) ([]store.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dimension, passed, skipped, errors
		FROM reports
		WHERE verification_id = ?
		ORDER BY report_id ASC
	`, verificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reports: %w", err)
	}
	defer rows.Close()

	var reports []store.Report
	for rows.Next() {
		var r store.Report
		var passed, skipped int
		var errText string

		if err := rows.Scan(&r.Dimension, &passed, &skipped, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		r.Passed = passed == 1
		r.Skipped = skipped == 1
		if errText != "" {
			r.Errors = strings.Split(errText, errorSeparator)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reports, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
