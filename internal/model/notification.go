package model

import "time"

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"` // status_change / new_application / application_accepted / new_message / ...
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	ActionURL *string   `json:"action_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
