package models

import (
	"fmt"
	"time"
)

// Resolution is a cached lookup of a (title, artist) pair to a catalog identifier.
type Resolution struct {
	id        string
	key       string
	title     string
	artist    string
	uri       string
	hits      int
	createdAt time.Time
	updatedAt time.Time
}

// NewResolution creates a [Resolution] for a lookup key. The ID is assigned on insert.
func NewResolution(key, title, artist, uri string) *Resolution {
	now := time.Now()
	return &Resolution{key: key, title: title, artist: artist, uri: uri, createdAt: now, updatedAt: now}
}

// RestoreResolution rebuilds a [Resolution] from stored columns.
func RestoreResolution(id, key, title, artist, uri string, hits int, createdAt, updatedAt time.Time) *Resolution {
	return &Resolution{
		id: id, key: key, title: title, artist: artist, uri: uri,
		hits: hits, createdAt: createdAt, updatedAt: updatedAt,
	}
}

func (r *Resolution) ID() string { return r.id }
func (r *Resolution) Key() string { return r.key }
func (r *Resolution) Title() string { return r.title }
func (r *Resolution) Artist() string { return r.artist }
func (r *Resolution) URI() string { return r.uri }
func (r *Resolution) Hits() int { return r.hits }
func (r *Resolution) CreatedAt() time.Time { return r.createdAt }
func (r *Resolution) UpdatedAt() time.Time { return r.updatedAt }

func (r *Resolution) SetID(id string) { r.id = id }
func (r *Resolution) SetURI(uri string) { r.uri = uri }
func (r *Resolution) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *Resolution) IncrementHits() { r.hits++ }

// Validate checks that the lookup key and identifier are present.
func (r *Resolution) Validate() error {
	if r.key == "" {
		return fmt.Errorf("resolution key is required")
	}
	if r.uri == "" {
		return fmt.Errorf("resolution uri is required")
	}
	return nil
}

// SessionStatus is the lifecycle status of a persisted session.
type SessionStatus string

const (
	SessionRunning  SessionStatus = "running"
	SessionFinished SessionStatus = "finished"
	SessionFailed   SessionStatus = "failed"
)

// SessionRecord is the stored history of one injection session.
type SessionRecord struct {
	id          string
	sequence    int
	status      SessionStatus
	reason      string
	requested   int
	resolved    int
	injected    int
	failures    int
	cycles      int
	journalPath string
	createdAt   time.Time
	updatedAt   time.Time
	endedAt     *time.Time
}

// NewSessionRecord creates a running [SessionRecord] with the session's own ID.
func NewSessionRecord(id string, requested, resolved int, journalPath string) *SessionRecord {
	now := time.Now()
	return &SessionRecord{
		id: id, status: SessionRunning,
		requested: requested, resolved: resolved, journalPath: journalPath,
		createdAt: now, updatedAt: now,
	}
}

// SessionRecordFields carries stored columns into [RestoreSessionRecord].
type SessionRecordFields struct {
	ID          string
	Sequence    int
	Status      SessionStatus
	Reason      string
	Requested   int
	Resolved    int
	Injected    int
	Failures    int
	Cycles      int
	JournalPath string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	EndedAt     *time.Time
}

// RestoreSessionRecord rebuilds a [SessionRecord] from stored columns.
func RestoreSessionRecord(f SessionRecordFields) *SessionRecord {
	return &SessionRecord{
		id: f.ID, sequence: f.Sequence, status: f.Status, reason: f.Reason,
		requested: f.Requested, resolved: f.Resolved, injected: f.Injected,
		failures: f.Failures, cycles: f.Cycles, journalPath: f.JournalPath,
		createdAt: f.CreatedAt, updatedAt: f.UpdatedAt, endedAt: f.EndedAt,
	}
}

func (s *SessionRecord) ID() string { return s.id }
func (s *SessionRecord) Sequence() int { return s.sequence }
func (s *SessionRecord) Status() SessionStatus { return s.status }
func (s *SessionRecord) Reason() string { return s.reason }
func (s *SessionRecord) Requested() int { return s.requested }
func (s *SessionRecord) Resolved() int { return s.resolved }
func (s *SessionRecord) Injected() int { return s.injected }
func (s *SessionRecord) Failures() int { return s.failures }
func (s *SessionRecord) Cycles() int { return s.cycles }
func (s *SessionRecord) JournalPath() string { return s.journalPath }
func (s *SessionRecord) CreatedAt() time.Time { return s.createdAt }
func (s *SessionRecord) UpdatedAt() time.Time { return s.updatedAt }
func (s *SessionRecord) EndedAt() *time.Time { return s.endedAt }

func (s *SessionRecord) SetSequence(seq int) { s.sequence = seq }
func (s *SessionRecord) SetUpdatedAt(t time.Time) { s.updatedAt = t }

// Finish records how the session ended. Failed sessions are marked [SessionFailed].
func (s *SessionRecord) Finish(reason string, injected, failures, cycles int, failed bool, at time.Time) {
	s.reason = reason
	s.injected = injected
	s.failures = failures
	s.cycles = cycles
	s.status = SessionFinished
	if failed {
		s.status = SessionFailed
	}
	s.endedAt = &at
	s.updatedAt = at
}

// Validate checks the status and counters.
func (s *SessionRecord) Validate() error {
	if s.id == "" {
		return fmt.Errorf("session id is required")
	}
	switch s.status {
	case SessionRunning, SessionFinished, SessionFailed:
	default:
		return fmt.Errorf("invalid session status: %q", s.status)
	}
	if s.requested < 0 || s.resolved < 0 || s.resolved > s.requested {
		return fmt.Errorf("invalid session counts: requested=%d resolved=%d", s.requested, s.resolved)
	}
	return nil
}
