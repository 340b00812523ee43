// Package snapshot writes a point-in-time dump of a Graph's states,
// actions, and activity stats into SQLite for offline analysis. It never
// sits on Model.Step's hot path and never mutates the Graph it reads
// (SPEC_FULL.md §4.8).
package snapshot

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"fastbot/internal/graph"
)

// Open opens (creating if necessary) a SQLite database at path using the
// pure-Go modernc.org/sqlite driver, kept cgo-free to match the engine's
// single-threaded step model.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS states (
	id          INTEGER PRIMARY KEY,
	hash        INTEGER NOT NULL,
	activity    TEXT NOT NULL,
	widget_count INTEGER NOT NULL,
	visit_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS actions (
	state_id    INTEGER NOT NULL,
	action_id   INTEGER NOT NULL,
	type        TEXT NOT NULL,
	has_target  INTEGER NOT NULL,
	target_hash INTEGER NOT NULL,
	priority    INTEGER NOT NULL,
	visit_count INTEGER NOT NULL,
	visited     INTEGER NOT NULL,
	valid       INTEGER NOT NULL,
	enabled     INTEGER NOT NULL,
	duplicates  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS activity_stats (
	activity TEXT PRIMARY KEY,
	count    INTEGER NOT NULL,
	share    REAL NOT NULL
);
`

// Export writes every state and action currently in g, plus per-activity
// counts and shares, into db. Existing rows from a prior export are
// cleared first so repeated exports against the same file stay a clean
// point-in-time dump rather than an ever-growing log.
func Export(db *sql.DB, g *graph.Graph) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("snapshot: create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin transaction: %w", err)
	}

	if err := exportLocked(tx, g); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot: commit: %w", err)
	}
	return nil
}

func exportLocked(tx *sql.Tx, g *graph.Graph) error {
	for _, table := range []string{"states", "actions", "activity_stats"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("snapshot: clear %s: %w", table, err)
		}
	}

	stateStmt, err := tx.Prepare(`INSERT INTO states (id, hash, activity, widget_count, visit_count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare states insert: %w", err)
	}
	defer stateStmt.Close()

	actionStmt, err := tx.Prepare(`INSERT INTO actions (state_id, action_id, type, has_target, target_hash, priority, visit_count, visited, valid, enabled, duplicates) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare actions insert: %w", err)
	}
	defer actionStmt.Close()

	activityCounts := make(map[string]int)
	states := g.States()
	for _, s := range states {
		if _, err := stateStmt.Exec(s.ID, int64(s.Hash), s.Activity, len(s.Widgets), s.VisitCount); err != nil {
			return fmt.Errorf("snapshot: insert state %d: %w", s.ID, err)
		}
		activityCounts[s.Activity]++

		for _, a := range s.Actions {
			if _, err := actionStmt.Exec(s.ID, a.ID, a.Type.String(), boolInt(a.HasTarget), int64(a.TargetHash), a.Priority, a.VisitCount, boolInt(a.Visited), boolInt(a.Valid), boolInt(a.Enabled), a.Duplicates); err != nil {
				return fmt.Errorf("snapshot: insert action %d of state %d: %w", a.ID, s.ID, err)
			}
		}
	}

	statStmt, err := tx.Prepare(`INSERT INTO activity_stats (activity, count, share) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare activity_stats insert: %w", err)
	}
	defer statStmt.Close()

	for activity, count := range activityCounts {
		if _, err := statStmt.Exec(activity, count, g.ActivityShare(activity)); err != nil {
			return fmt.Errorf("snapshot: insert activity stats for %s: %w", activity, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
