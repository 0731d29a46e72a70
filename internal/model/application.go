package model

import "time"

const (
	ApplicationPending   = "pending"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
	ApplicationWithdrawn = "withdrawn"
)

type Application struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"project_id"`
	ProfessionalID int64     `json:"professional_id"`
	Proposal       string    `json:"proposal"`
	Budget         float64   `json:"budget"`
	Timeline       string    `json:"timeline"` // free-form, e.g. "2 weeks"
	Status         string    `json:"status"`   // pending / accepted / rejected / withdrawn
	CreatedAt      time.Time `json:"created_at"`
}
