package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/jitdj/internal/models"
)

// SessionRepository implements models.Repository[*models.SessionRecord] over the sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, sequence, status, reason, requested, resolved, injected, failures, cycles,
	journal_path, created_at, updated_at, ended_at`

// Create inserts a new [models.SessionRecord] and assigns its sequence number.
//
// Session records reuse the ID of the in-memory session so journal files and rows line up.
func (r *SessionRepository) Create(rec *models.SessionRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	rec.SetSequence(sequence)

	_, err = r.db.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID(),
		rec.Sequence(),
		string(rec.Status()),
		rec.Reason(),
		rec.Requested(),
		rec.Resolved(),
		rec.Injected(),
		rec.Failures(),
		rec.Cycles(),
		rec.JournalPath(),
		rec.CreatedAt(),
		rec.UpdatedAt(),
		nullTime(rec.EndedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*models.SessionRecord, error) {
	rec, err := scanSession(r.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return rec, nil
}

// Update persists the outcome fields of a session.
func (r *SessionRepository) Update(rec *models.SessionRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	rec.SetUpdatedAt(now)

	result, err := r.db.Exec(`
		UPDATE sessions
		SET status = ?, reason = ?, injected = ?, failures = ?, cycles = ?, updated_at = ?, ended_at = ?
		WHERE id = ?
	`,
		string(rec.Status()),
		rec.Reason(),
		rec.Injected(),
		rec.Failures(),
		rec.Cycles(),
		now,
		nullTime(rec.EndedAt()),
		rec.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return checkAffected(result, "session", rec.ID())
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return checkAffected(result, "session", id)
}

// List retrieves sessions newest first.
//
// Supported criteria: "status" (models.SessionStatus or string) and "limit" (int).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.SessionRecord, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE 1 = 1"
	args := []any{}

	switch status := criteria["status"].(type) {
	case models.SessionStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return out, nil
}

func scanSession(s scanner) (*models.SessionRecord, error) {
	var (
		f       models.SessionRecordFields
		status  string
		endedAt sql.NullTime
	)
	err := s.Scan(
		&f.ID, &f.Sequence, &status, &f.Reason,
		&f.Requested, &f.Resolved, &f.Injected, &f.Failures, &f.Cycles,
		&f.JournalPath, &f.CreatedAt, &f.UpdatedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Status = models.SessionStatus(status)
	if endedAt.Valid {
		t := endedAt.Time
		f.EndedAt = &t
	}
	return models.RestoreSessionRecord(f), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
