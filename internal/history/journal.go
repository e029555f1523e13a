// Package history persists an append-only journal of evolution attempts in
// SQLite. The journal is observability only: the coordinator's own state
// lives in the tree and tracker files, and a journal failure never blocks
// the evolution loop.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"prokaryote/internal/evolution"
)

// Outcome of a recorded attempt.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeSelected = "selected"
)

// Attempt is one journal row.
type Attempt struct {
	ID        string    `json:"id"`
	Round     int       `json:"round"`
	Tree      string    `json:"tree"`
	SkillID   string    `json:"skill_id"`
	Outcome   string    `json:"outcome"`
	Level     int       `json:"level"`
	Action    string    `json:"action,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Index     float64   `json:"index,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Journal manages the attempt history database.
type Journal struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens the journal database.
func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	j := &Journal{db: db, dbPath: dbPath}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		round INTEGER NOT NULL,
		tree TEXT NOT NULL,
		skill_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		level INTEGER NOT NULL,
		action TEXT,
		reason TEXT,
		stage TEXT,
		evo_index REAL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_skill ON attempts(skill_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_round ON attempts(round);
	CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON attempts(outcome);
	`
	_, err := j.db.Exec(schema)
	return err
}

// RecordSelection journals a skill pick.
func (j *Journal) RecordSelection(sel evolution.Selection) error {
	if sel.None() {
		return nil
	}
	return j.insert(Attempt{
		Round:   sel.Round,
		Tree:    string(sel.Tree),
		SkillID: sel.SkillID,
		Outcome: OutcomeSelected,
		Level:   sel.Skill.Level,
		Stage:   string(sel.Stage),
		Index:   sel.Index,
	})
}

// RecordSuccess journals a successful evolution.
func (j *Journal) RecordSuccess(round int, tree evolution.TreeType, skillID string, newLevel int) error {
	return j.insert(Attempt{
		Round:   round,
		Tree:    string(tree),
		SkillID: skillID,
		Outcome: OutcomeSuccess,
		Level:   newLevel,
	})
}

// RecordFailure journals a failed evolution and the tracker's reaction.
func (j *Journal) RecordFailure(round int, tree evolution.TreeType, skillID string, level int, reason string, action evolution.FallbackAction) error {
	return j.insert(Attempt{
		Round:   round,
		Tree:    string(tree),
		SkillID: skillID,
		Outcome: OutcomeFailure,
		Level:   level,
		Action:  action.Action,
		Reason:  reason,
	})
}

func (j *Journal) insert(a Attempt) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	_, err := j.db.Exec(`
		INSERT INTO attempts (id, round, tree, skill_id, outcome, level, action, reason, stage, evo_index, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Round, a.Tree, a.SkillID, a.Outcome, a.Level, a.Action, a.Reason, a.Stage, a.Index, a.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to journal attempt: %w", err)
	}
	return nil
}

// Recent returns the most recent attempts, newest first.
func (j *Journal) Recent(limit int) ([]Attempt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`
		SELECT id, round, tree, skill_id, outcome, level, action, reason, stage, evo_index, timestamp
		FROM attempts ORDER BY timestamp DESC, round DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// BySkill returns every journaled attempt for one skill, newest first.
func (j *Journal) BySkill(skillID string) ([]Attempt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`
		SELECT id, round, tree, skill_id, outcome, level, action, reason, stage, evo_index, timestamp
		FROM attempts WHERE skill_id = ? ORDER BY timestamp DESC, round DESC
	`, skillID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// SuccessRate returns per-skill success/failure counts across the whole
// journal, skipping selection rows.
func (j *Journal) SuccessRate() (map[string][2]int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`
		SELECT skill_id, outcome, COUNT(*) FROM attempts
		WHERE outcome IN (?, ?) GROUP BY skill_id, outcome
	`, OutcomeSuccess, OutcomeFailure)
	if err != nil {
		return nil, fmt.Errorf("failed to query success rate: %w", err)
	}
	defer rows.Close()

	rates := make(map[string][2]int)
	for rows.Next() {
		var skillID, outcome string
		var count int
		if err := rows.Scan(&skillID, &outcome, &count); err != nil {
			return nil, err
		}
		r := rates[skillID]
		if outcome == OutcomeSuccess {
			r[0] = count
		} else {
			r[1] = count
		}
		rates[skillID] = r
	}
	return rates, rows.Err()
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var out []Attempt
	for rows.Next() {
		var a Attempt
		var action, reason, stage sql.NullString
		var index sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.Round, &a.Tree, &a.SkillID, &a.Outcome,
			&a.Level, &action, &reason, &stage, &index, &a.Timestamp); err != nil {
			return nil, err
		}
		a.Action = action.String
		a.Reason = reason.String
		a.Stage = stage.String
		a.Index = index.Float64
		out = append(out, a)
	}
	return out, rows.Err()
}
