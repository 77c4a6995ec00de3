package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the (created, id) of the last status on a page. Listing resumes
// strictly after it in created DESC, id ASC order.
type Cursor struct {
	Created time.Time
	ID      string
}

type cursorWire struct {
	Created string `json:"c"`
	ID      string `json:"i"`
}

func CursorAfter(s StatusPublic) Cursor {
	return Cursor{Created: s.Created, ID: s.ID}
}

// Encode returns the opaque URL-safe form of c.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(cursorWire{
		Created: c.Created.UTC().Format(time.RFC3339Nano),
		ID:      c.ID,
	})
	return base64.RawURLEncoding.EncodeToString(data)
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if w.ID == "" {
		return Cursor{}, ErrInvalidCursor
	}
	created, err := time.Parse(time.RFC3339Nano, w.Created)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	return Cursor{Created: created.UTC(), ID: w.ID}, nil
}

// Precedes reports whether the cursor position sorts strictly before s.
func (c Cursor) Precedes(s StatusPublic) bool {
	return Less(StatusPublic{ID: c.ID, Created: c.Created}, s)
}

// Less orders statuses newest first, ties broken by ascending id.
func Less(a, b StatusPublic) bool {
	if !a.Created.Equal(b.Created) {
		return a.Created.After(b.Created)
	}
	return a.ID < b.ID
}
