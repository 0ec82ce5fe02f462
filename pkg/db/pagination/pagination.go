package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination carries the cursor parameters of a listing request, bound
// straight from the query string.
type Pagination struct {
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit"`
}

// PageSize clamps the requested limit into [1, MaxLimit].
func (p Pagination) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	}
	return p.Limit
}

// Cursor marks a position in a created_at-descending listing. The id breaks
// ties between rows created in the same instant.
type Cursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
}

type PageInfo struct {
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// BuildPage trims an overfetched result set down to the page size and derives
// the next cursor from the last row kept. rows is expected to hold up to
// size+1 elements.
func BuildPage[T any](rows []*T, size int, cursorOf func(*T) Cursor) ([]*T, *PageInfo, error) {
	if len(rows) == 0 {
		return rows, &PageInfo{}, nil
	}

	hasMore := len(rows) > size
	if hasMore {
		rows = rows[:size]
	}

	next, err := EncodeCursor(cursorOf(rows[len(rows)-1]))
	if err != nil {
		return nil, nil, err
	}

	return rows, &PageInfo{NextCursor: next, HasMore: hasMore}, nil
}
