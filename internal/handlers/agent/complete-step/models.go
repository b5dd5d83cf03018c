package completestep

import "insurance-backoffice/internal/models"

type Input struct {
	ApplicationID string  `json:"application_id"`
	StepID        *int    `json:"step_id"`
	StepName      string  `json:"step_name"`
	AdminNotes    *string `json:"admin_notes"`
	AdminID       *string `json:"admin_id"`
}

// Output is the application after the update.
type Output struct {
	Application *models.Application
}

type auditEntry struct {
	Timestamp      string  `json:"timestamp"`
	Action         string  `json:"action"`
	StepName       string  `json:"step_name"`
	StepID         int     `json:"step_id"`
	AdminName      string  `json:"admin_name"`
	AdminID        *string `json:"admin_id"`
	AdminNotes     string  `json:"admin_notes"`
	PreviousStatus string  `json:"previous_status"`
	NewStatus      string  `json:"new_status"`
	Message        string  `json:"message"`
}
