package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Notification is an in-app message emitted after a grant or an expiry.
type Notification struct {
	ID        string // ULID, sortable by creation time
	UserID    string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

func NewNotification(userID, title, message string, now time.Time) *Notification {
	return &Notification{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: now,
	}
}
