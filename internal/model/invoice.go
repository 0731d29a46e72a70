package model

import "time"

const (
	InvoicePending = "pending"
	InvoicePaid    = "paid"
)

type Invoice struct {
	ID             int64      `json:"id"`
	ProjectID      int64      `json:"project_id"`
	ClientID       int64      `json:"client_id"`
	ProfessionalID int64      `json:"professional_id"`
	Amount         float64    `json:"amount"`
	Status         string     `json:"status"` // pending / paid
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
