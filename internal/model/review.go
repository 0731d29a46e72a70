package model

import "time"

type Review struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"project_id"`
	ClientID       int64     `json:"client_id"`
	ProfessionalID int64     `json:"professional_id"`
	ReviewerRole   string    `json:"reviewer_role"` // client / professional; at most one review per (project, role)
	Rating         int       `json:"rating"`        // 1..5
	Comment        *string   `json:"comment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
