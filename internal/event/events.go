// Package event defines the routing keys and payloads for every domain
// event the services write to the outbox. The worker's fan-out handlers
// are the only consumers; they translate these into notification rows,
// system chat messages and websocket pushes.
package event

import "time"

// Routing keys on the "events" topic exchange.
const (
	ProjectStatusChanged = "project.status_changed"
	ProjectUpdatePosted  = "project.update_posted"
	ApplicationReceived  = "application.received"
	ApplicationAccepted  = "application.accepted"
	ApplicationRejected  = "application.rejected"
	MessageSent          = "message.sent"
	InvoicePaid          = "invoice.paid"
	ReviewSubmitted      = "review.submitted"
	NotificationCreated  = "notification.created"
)

// EventID 用于 Redis 去重，at-least-once 投递下保证只通知一次
type ProjectStatusChangedPayload struct {
	EventID       string    `json:"event_id"`
	ProjectID     int64     `json:"project_id"`
	ProjectTitle  string    `json:"project_title"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ActorID       int64     `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	CounterpartID int64     `json:"counterpart_id"` // 0 when the project has no counterpart yet
	OccurredAt    time.Time `json:"occurred_at"`
}

type ProjectUpdatePostedPayload struct {
	EventID       string    `json:"event_id"`
	ProjectID     int64     `json:"project_id"`
	ProjectTitle  string    `json:"project_title"`
	UpdateID      int64     `json:"update_id"`
	UpdateType    string    `json:"update_type"`
	CreatedBy     int64     `json:"created_by"`
	CounterpartID int64     `json:"counterpart_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type ApplicationReceivedPayload struct {
	EventID        string    `json:"event_id"`
	ApplicationID  int64     `json:"application_id"`
	ProjectID      int64     `json:"project_id"`
	ProjectTitle   string    `json:"project_title"`
	ProfessionalID int64     `json:"professional_id"`
	ClientID       int64     `json:"client_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type ApplicationAcceptedPayload struct {
	EventID        string    `json:"event_id"`
	ApplicationID  int64     `json:"application_id"`
	ProjectID      int64     `json:"project_id"`
	ProjectTitle   string    `json:"project_title"`
	ProfessionalID int64     `json:"professional_id"`
	ClientID       int64     `json:"client_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type ApplicationRejectedPayload struct {
	EventID        string    `json:"event_id"`
	ApplicationID  int64     `json:"application_id"`
	ProjectID      int64     `json:"project_id"`
	ProjectTitle   string    `json:"project_title"`
	ProfessionalID int64     `json:"professional_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type MessageSentPayload struct {
	EventID      string    `json:"event_id"`
	MessageID    int64     `json:"message_id"`
	ProjectID    int64     `json:"project_id"`
	ProjectTitle string    `json:"project_title"`
	SenderID     int64     `json:"sender_id"`
	RecipientID  int64     `json:"recipient_id"`
	Preview      string    `json:"preview"`
	IsSystem     bool      `json:"is_system"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type InvoicePaidPayload struct {
	EventID        string    `json:"event_id"`
	InvoiceID      int64     `json:"invoice_id"`
	ProjectID      int64     `json:"project_id"`
	ProjectTitle   string    `json:"project_title"`
	Amount         float64   `json:"amount"`
	ClientID       int64     `json:"client_id"`
	ProfessionalID int64     `json:"professional_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type ReviewSubmittedPayload struct {
	EventID      string    `json:"event_id"`
	ReviewID     int64     `json:"review_id"`
	ProjectID    int64     `json:"project_id"`
	ProjectTitle string    `json:"project_title"`
	ReviewerRole string    `json:"reviewer_role"`
	Rating       int       `json:"rating"`
	RecipientID  int64     `json:"recipient_id"` // the reviewed party
	OccurredAt   time.Time `json:"occurred_at"`
}

// NotificationCreatedPayload is published by the worker after it writes a
// notification row, so the API process can push it over websocket and
// drop the cached unread badge.
type NotificationCreatedPayload struct {
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ActionURL      string    `json:"action_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
