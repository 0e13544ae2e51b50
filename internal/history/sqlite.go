package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Sown0205/Anubis/internal/core/model"
)

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed initializes) the history database.
// dbPath is the path to the SQLite database file; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS scans (
			id           TEXT PRIMARY KEY,
			start_time   DATETIME NOT NULL,
			end_time     DATETIME,
			status       TEXT NOT NULL,
			total_flows  INTEGER DEFAULT 0,
			attack_count INTEGER DEFAULT 0,
			session_json TEXT NOT NULL,
			results_json TEXT NOT NULL,
			recorded_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_scans_start_time ON scans(start_time);
	`
	if _, err := db.Exec(createIndexSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record upserts a finished session with its results.
func (s *SQLiteStore) Record(ctx context.Context, session model.ScanSession, results []model.ScanResult) error {
	if session.ID == "" {
		return fmt.Errorf("history: session has no id")
	}

	sessionJSON, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("history: marshal session: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("history: marshal results: %w", err)
	}

	var endTime any
	if session.EndTime != nil {
		endTime = session.EndTime.Format(time.RFC3339)
	}

	query := `
		INSERT INTO scans (id, start_time, end_time, status, total_flows, attack_count, session_json, results_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			end_time     = excluded.end_time,
			status       = excluded.status,
			total_flows  = excluded.total_flows,
			attack_count = excluded.attack_count,
			session_json = excluded.session_json,
			results_json = excluded.results_json
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		session.StartTime.Format(time.RFC3339),
		endTime,
		session.Status,
		session.TotalFlows,
		session.AttackCount,
		string(sessionJSON),
		string(resultsJSON),
	)
	if err != nil {
		return fmt.Errorf("history: record scan: %w", err)
	}
	return nil
}

// List returns the recorded scans, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]model.HistoryItem, error) {
	query := `
		SELECT session_json FROM scans
		ORDER BY start_time DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("history: list scans: %w", err)
	}
	defer rows.Close()

	var items []model.HistoryItem
	for rows.Next() {
		var sessionJSON string
		if err := rows.Scan(&sessionJSON); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		var session model.ScanSession
		if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
			return nil, fmt.Errorf("history: unmarshal session: %w", err)
		}
		items = append(items, ItemFromSession(session))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return items, nil
}

// Get returns the full detail for one scan, or (nil, nil) when unknown.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.HistoryDetail, error) {
	query := `SELECT session_json, results_json FROM scans WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	var sessionJSON, resultsJSON string
	if err := row.Scan(&sessionJSON, &resultsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("history: scan row: %w", err)
	}

	var session model.ScanSession
	if err := json.Unmarshal([]byte(sessionJSON), &session); err != nil {
		return nil, fmt.Errorf("history: unmarshal session: %w", err)
	}
	var results []model.ScanResult
	if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
		return nil, fmt.Errorf("history: unmarshal results: %w", err)
	}

	return &model.HistoryDetail{
		ScanID:       id,
		Session:      session,
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// Delete removes a recorded scan.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id); err != nil {
		return fmt.Errorf("history: delete scan: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ItemFromSession derives the compact history row from a session.
func ItemFromSession(session model.ScanSession) model.HistoryItem {
	end := time.Now().UTC()
	status := "Running"
	if session.EndTime != nil {
		end = *session.EndTime
	}
	switch session.Status {
	case model.SessionCompleted:
		status = "Completed"
	case model.SessionStopped:
		status = "Stopped"
	}

	return model.HistoryItem{
		ID:         session.ID,
		Date:       session.StartTime.Format("2006-01-02"),
		Time:       session.StartTime.Format("15:04:05"),
		Duration:   model.FormatShortDuration(end.Sub(session.StartTime)),
		TotalFlows: session.TotalFlows,
		Threats:    session.AttackCount,
		Status:     status,
	}
}
