package rollbackstep

import "insurance-backoffice/internal/models"

type Input struct {
	ApplicationID  string  `json:"application_id"`
	StepID         *int    `json:"step_id"`
	StepName       string  `json:"step_name"`
	AdminID        *string `json:"admin_id"`
	RollbackReason *string `json:"rollback_reason"`
}

type Output struct {
	Application *models.Application
}

const (
	defaultReason     = "Rolled back by admin"
	defaultRolledBack = "admin"
)

// previousCompletion keeps the manual completion that was undone.
type previousCompletion struct {
	CompletedBy *string `json:"completed_by"`
	CompletedAt *string `json:"completed_at"`
	AdminNotes  *string `json:"admin_notes"`
}

type auditEntry struct {
	Timestamp      string  `json:"timestamp"`
	Action         string  `json:"action"`
	StepName       string  `json:"step_name"`
	StepID         int     `json:"step_id"`
	AdminName      string  `json:"admin_name"`
	AdminID        *string `json:"admin_id"`
	RollbackReason string  `json:"rollback_reason"`
	Message        string  `json:"message"`
}
