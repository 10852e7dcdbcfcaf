package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ActivityEntryResponse is one activity log row.
type ActivityEntryResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// NewActivityResponse maps activity entries, preserving order.
func NewActivityResponse(entries []domain.ActivityEntry) []ActivityEntryResponse {
	out := make([]ActivityEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActivityEntryResponse{ID: e.ID, UserID: e.UserID, Action: e.Action, CreatedAt: e.CreatedAt})
	}
	return out
}
