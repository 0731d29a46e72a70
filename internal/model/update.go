package model

import "time"

// UpdateType values form a closed set; the timeline rejects anything else.
const (
	UpdateMessage            = "message"
	UpdateStatusChange       = "status_change"
	UpdateFileUpload         = "file_upload"
	UpdateSiteCheck          = "site_check"
	UpdateStartTime          = "start_time"
	UpdateCompletionNote     = "completion_note"
	UpdateCheckIn            = "check_in"
	UpdateCheckOut           = "check_out"
	UpdateOnMyWay            = "on_my_way"
	UpdateDelayed            = "delayed"
	UpdateCancelled          = "cancelled"
	UpdateRevisitRequired    = "revisit_required"
	UpdateExpenseSubmitted   = "expense_submitted"
	UpdateExpenseApproved    = "expense_approved"
	UpdatePaymentProcessed   = "payment_processed"
	UpdateScheduleUpdated    = "schedule_updated"
	UpdateTaskCompleted      = "task_completed"
	UpdateCustomFieldUpdated = "custom_field_updated"
)

var updateTypes = map[string]struct{}{
	UpdateMessage:            {},
	UpdateStatusChange:       {},
	UpdateFileUpload:         {},
	UpdateSiteCheck:          {},
	UpdateStartTime:          {},
	UpdateCompletionNote:     {},
	UpdateCheckIn:            {},
	UpdateCheckOut:           {},
	UpdateOnMyWay:            {},
	UpdateDelayed:            {},
	UpdateCancelled:          {},
	UpdateRevisitRequired:    {},
	UpdateExpenseSubmitted:   {},
	UpdateExpenseApproved:    {},
	UpdatePaymentProcessed:   {},
	UpdateScheduleUpdated:    {},
	UpdateTaskCompleted:      {},
	UpdateCustomFieldUpdated: {},
}

// ValidUpdateType reports whether t is in the closed update_type set.
func ValidUpdateType(t string) bool {
	_, ok := updateTypes[t]
	return ok
}

// ProjectUpdate is one append-only timeline event. Rows are never updated
// or deleted; the table is the project's audit trail.
type ProjectUpdate struct {
	ID         int64          `json:"id"`
	ProjectID  int64          `json:"project_id"`
	UpdateType string         `json:"update_type"`
	Message    *string        `json:"message,omitempty"`
	FileURL    *string        `json:"file_url,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"` // type-dependent payload, e.g. geolocation for site_check
	CreatedBy  int64          `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
}
