package db

import (
	"context"
	"database/sql"
	"fmt"

	"triagemd/pkg"
)

// Repository wraps the Postgres transcript log. The interview core never
// reads it back; it exists so staff can review how a triage conversation
// went, especially after an escalation.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a Repository from an existing sql.DB. The caller
// is responsible for managing the connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateSession records a new interview session.
func (r *Repository) CreateSession(ctx context.Context, id string, demo pkg.Demographics) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO sessions (id, sex, age) VALUES ($1, $2, $3)`,
		id, demo.Sex, demo.Age)
	return err
}

// SetFlowchart records which flowchart was selected for a session.
func (r *Repository) SetFlowchart(ctx context.Context, id, name string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET flowchart = $2 WHERE id = $1`, id, name)
	return err
}

// CloseSession marks the interview over; escalated records whether it ended
// in a forced escalation.
func (r *Repository) CloseSession(ctx context.Context, id string, escalated bool) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE sessions SET closed_at = NOW(), escalated = $2 WHERE id = $1`, id, escalated)
	return err
}

// Append records one turn. It implements the navigator's TranscriptLog
// contract: turns arrive in order and are only ever appended.
func (r *Repository) Append(ctx context.Context, sessionID string, turn pkg.Turn) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO messages (session_id, speaker, content) VALUES ($1, $2, $3)`,
		sessionID, string(turn.Speaker), turn.Text)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// GetTranscript returns all turns of a session ordered by creation time.
func (r *Repository) GetTranscript(ctx context.Context, sessionID string) ([]pkg.Turn, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT speaker, content, created_at
         FROM messages
         WHERE session_id = $1
         ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pkg.Turn
	for rows.Next() {
		var t pkg.Turn
		var speaker string
		if err := rows.Scan(&speaker, &t.Text, &t.At); err != nil {
			return nil, err
		}
		t.Speaker = pkg.Speaker(speaker)
		out = append(out, t)
	}
	return out, rows.Err()
}

// SessionExists reports whether a session id is known. Used by the transcript
// endpoint to distinguish not-found from empty.
func (r *Repository) SessionExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return exists, err
}
