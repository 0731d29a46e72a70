package model

import (
	"time"

	"tradeboard/internal/status"
)

type Project struct {
	ID             int64         `json:"id"`
	ClientID       int64         `json:"client_id"`
	ProfessionalID *int64        `json:"professional_id,omitempty"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Budget         float64       `json:"budget"`
	Status         status.Status `json:"status"`
	Deadline       *time.Time    `json:"deadline,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ParticipantRole returns the lifecycle role userID plays on the project,
// or false when the user is not a participant.
func (p *Project) ParticipantRole(userID int64) (status.Role, bool) {
	if p.ClientID == userID {
		return status.RoleClient, true
	}
	if p.ProfessionalID != nil && *p.ProfessionalID == userID {
		return status.RoleProfessional, true
	}
	return "", false
}

// Counterpart returns the other participant for a given user, if any.
func (p *Project) Counterpart(userID int64) (int64, bool) {
	if p.ClientID == userID {
		if p.ProfessionalID == nil {
			return 0, false
		}
		return *p.ProfessionalID, true
	}
	if p.ProfessionalID != nil && *p.ProfessionalID == userID {
		return p.ClientID, true
	}
	return 0, false
}
