package models

import (
	"encoding/json"
	"time"
)

const (
	NotificationWaitlistPromoted     = "waitlist_promoted"
	NotificationRegistrationRejected = "registration_rejected"
)

type Notification struct {
	ID        int             `json:"id" db:"id"`
	UserID    int             `json:"user_id" db:"user_id"`
	Type      string          `json:"type" db:"type"`
	Title     string          `json:"title" db:"title"`
	Message   string          `json:"message" db:"message"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
