package domain

import "time"

// Status is the stored record. Deleted is set once and never cleared.
type Status struct {
	ID       string     `json:"id"`
	Body     string     `json:"body"`
	Created  time.Time  `json:"created"`
	Modified time.Time  `json:"modified"`
	Deleted  *time.Time `json:"-"`
}

// StatusPublic is the projection handed to callers.
type StatusPublic struct {
	ID       string    `json:"id"`
	Body     string    `json:"body"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// NewStatus builds a live record with created == modified.
func NewStatus(id, body string, now time.Time) *Status {
	return &Status{
		ID:       id,
		Body:     body,
		Created:  now,
		Modified: now,
	}
}

func (s *Status) IsDeleted() bool {
	return s.Deleted != nil
}

// Public returns the public projection, or false for a tombstone.
func (s *Status) Public() (StatusPublic, bool) {
	if s.IsDeleted() {
		return StatusPublic{}, false
	}
	return StatusPublic{
		ID:       s.ID,
		Body:     s.Body,
		Created:  s.Created,
		Modified: s.Modified,
	}, true
}

// ETag is the entity tag derived from the modified timestamp.
func (p StatusPublic) ETag() string {
	return `"` + p.Modified.UTC().Format(time.RFC3339Nano) + `"`
}
