package model

import "time"

type ProjectMessage struct {
	ID          int64     `json:"id"`
	ProjectID   int64     `json:"project_id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Content     string    `json:"content"`
	ParentID    *int64    `json:"parent_id,omitempty"` // one-level reply reference, not a thread tree
	IsSystem    bool      `json:"is_system"`
	IsRead      bool      `json:"is_read"`
	SentAt      time.Time `json:"sent_at"`
}

type MessageReaction struct {
	ID        int64     `json:"id"`
	MessageID int64     `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}
