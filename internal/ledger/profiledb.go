package ledger

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// ProfileDB persists expertise profiles in a SQLite database so that dynamic
// category scores survive engine restarts. Pass ":memory:" as the path for
// an ephemeral database (used by tests).
type ProfileDB struct {
	db *sql.DB
}

// ProfileRow is one persisted (user, category) score.
type ProfileRow struct {
	Score   float64
	Samples int
}

const profileSchema = `
CREATE TABLE IF NOT EXISTS expertise (
	user_id    TEXT NOT NULL,
	category   TEXT NOT NULL,
	score      REAL NOT NULL,
	samples    INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, category)
);`

// OpenProfileDB opens (or creates) the profile database at path and ensures
// the schema exists.
func OpenProfileDB(path string) (*ProfileDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening profile database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("pinging profile database: %w", err)
	}

	// Single connection avoids "database is locked" errors; all writes come
	// from the expertise ingestor goroutine anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()

		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(profileSchema); err != nil {
		db.Close()

		return nil, fmt.Errorf("creating expertise schema: %w", err)
	}

	return &ProfileDB{db: db}, nil
}

// LoadAll returns every persisted profile keyed by user then category.
func (p *ProfileDB) LoadAll() (map[string]map[string]ProfileRow, error) {
	rows, err := p.db.Query("SELECT user_id, category, score, samples FROM expertise")
	if err != nil {
		return nil, fmt.Errorf("loading expertise profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]ProfileRow)
	for rows.Next() {
		var userID, category string
		var row ProfileRow
		if err := rows.Scan(&userID, &category, &row.Score, &row.Samples); err != nil {
			return nil, fmt.Errorf("scanning expertise row: %w", err)
		}
		if out[userID] == nil {
			out[userID] = make(map[string]ProfileRow)
		}
		out[userID][category] = row
	}

	return out, rows.Err()
}

// Upsert writes one (user, category) score.
func (p *ProfileDB) Upsert(userID, category string, score float64, samples int) error {
	_, err := p.db.Exec(`
		INSERT INTO expertise (user_id, category, score, samples, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, category)
		DO UPDATE SET score = excluded.score, samples = excluded.samples, updated_at = CURRENT_TIMESTAMP`,
		userID, category, score, samples)
	if err != nil {
		return fmt.Errorf("upserting expertise for %s/%s: %w", userID, category, err)
	}

	return nil
}

// Close closes the underlying database.
func (p *ProfileDB) Close() error {
	return p.db.Close()
}
