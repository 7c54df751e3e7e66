// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// The schema deliberately carries no ON DELETE CASCADE and no uniqueness
// constraint on (survey_id, respondent_name): multi-row consistency and the
// duplicate-name check live in the service layer, and the storage layer only
// executes the individual steps it is given.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements both repository
// interfaces (SurveyRepository and ResponseRepository) on one receiver —
// the tables belong to a single schema and share the connection pool.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/schedo.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping verifies the connection actually works.
	// Without this, a bad path or permissions issue would only surface
	// on the first query — which is much harder to debug.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows concurrent reads while a write is in progress —
	// important for a web server where multiple requests hit the DB.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (for backwards compatibility).
	// We turn them on for referential integrity on the survey_id /
	// response_id / survey_date_id references.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it safe to
// run on every startup; a production deployment with evolving schema would
// switch to golang-migrate.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS surveys (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_surveys_created_at ON surveys(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating surveys table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS survey_dates (
			id         TEXT PRIMARY KEY,
			survey_id  TEXT NOT NULL REFERENCES surveys(id),
			date_value TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_survey_dates_survey_id ON survey_dates(survey_id);
	`)
	if err != nil {
		return fmt.Errorf("creating survey_dates table: %w", err)
	}

	// No UNIQUE(survey_id, respondent_name): the duplicate-name check is a
	// pre-insert existence check in the service, and the check-then-insert
	// race is an accepted property of the design.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			id              TEXT PRIMARY KEY,
			survey_id       TEXT NOT NULL REFERENCES surveys(id),
			respondent_name TEXT NOT NULL,
			cookie_id       TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_responses_survey_id ON responses(survey_id);
	`)
	if err != nil {
		return fmt.Errorf("creating responses table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS response_details (
			id             TEXT PRIMARY KEY,
			response_id    TEXT NOT NULL REFERENCES responses(id),
			survey_date_id TEXT NOT NULL REFERENCES survey_dates(id),
			availability   TEXT NOT NULL,
			note           TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_response_details_response_id
			ON response_details(response_id);
		CREATE INDEX IF NOT EXISTS idx_response_details_survey_date_id
			ON response_details(survey_date_id);
	`)
	if err != nil {
		return fmt.Errorf("creating response_details table: %w", err)
	}

	return nil
}
