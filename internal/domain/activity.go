package domain

import "time"

// ActivityEntry is one row of the append-only activity log.
type ActivityEntry struct {
	ID        int64
	UserID    string
	Action    string
	CreatedAt time.Time
}
