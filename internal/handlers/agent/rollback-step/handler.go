package rollbackstep

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/repository"
)

const (
	Operation = "rollback-step"
)

var (
	ErrInvalidRequest      = errors.New("INVALID_REQUEST")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrStepNotFound        = errors.New("STEP_NOT_FOUND")
	ErrNotManual           = errors.New("STEP_NOT_MANUALLY_COMPLETED")
	ErrCorruptHistory      = errors.New("CORRUPT_STEP_HISTORY")
)

type Handler struct {
	config       *Config
	applications *repository.Applications
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		applications: repository.NewApplications(db),
		logger:       log.WithFields(map[string]interface{}{"operation": Operation}),
		now:          time.Now,
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" || input.StepID == nil || input.StepName == "" {
		return nil, apperrors.NewInvalidInputError("application_id, step_id and step_name are required").
			WithStatus(http.StatusUnprocessableEntity).
			WithCause(ErrInvalidRequest)
	}
	stepID := *input.StepID

	app, err := h.applications.Locate(ctx, input.ApplicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Application process", input.ApplicationID).
			WithCause(ErrApplicationNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	steps, embedded, err := app.Steps()
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("%w: %v", ErrCorruptHistory, err))
	}

	reason := defaultReason
	if input.RollbackReason != nil && *input.RollbackReason != "" {
		reason = *input.RollbackReason
	}
	rolledBackBy := defaultRolledBack
	if input.AdminID != nil && *input.AdminID != "" {
		rolledBackBy = *input.AdminID
	}
	now := h.now().UTC().Format(time.RFC3339Nano)

	idx := -1
	for i := range steps {
		if steps[i].Matches(stepID, input.StepName) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, (&apperrors.StandardError{
			Code:      apperrors.ErrCodeNotFound,
			Message:   fmt.Sprintf("Step '%s' not found in step history", input.StepName),
			Timestamp: time.Now().UTC(),
		}).WithCause(ErrStepNotFound)
	}

	step := &steps[idx]
	if step.CompletedBy == nil || *step.CompletedBy != models.StepCompletedByHuman {
		return nil, apperrors.NewConflictError(fmt.Sprintf(
			"Step '%s' was not manually completed. Only manually completed steps can be rolled back.",
			input.StepName)).WithCause(ErrNotManual)
	}

	prev := previousCompletion{
		CompletedBy: step.CompletedBy,
		CompletedAt: step.CompletedAt,
		AdminNotes:  step.AdminNotes,
	}
	step.Status = models.StringPtr(models.StepStatusPending)
	if err := setAll(step, map[string]interface{}{
		"rollback_reason":     reason,
		"rolled_back_at":      now,
		"rolled_back_by":      rolledBackBy,
		"previous_completion": prev,
	}); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if err := applyHistory(app, steps, embedded); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	adminName := "Admin"
	if input.AdminID != nil && *input.AdminID != "" {
		adminName = *input.AdminID
	}
	if err := appendAudit(app, auditEntry{
		Timestamp:      now,
		Action:         "step_rollback",
		StepName:       input.StepName,
		StepID:         stepID,
		AdminName:      adminName,
		AdminID:        input.AdminID,
		RollbackReason: reason,
		Message:        fmt.Sprintf("Admin %s rolled back step '%s' to pending status", adminName, input.StepName),
	}); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	// The current step is reset to the rolled back step, never recomputed.
	current := app.CurrentStepValue()
	if app.CurrentStep != nil && (current == input.StepName || current == strconv.Itoa(stepID)) {
		app.CurrentStep = models.StringPtr(input.StepName)
	}

	today := models.Today()
	app.LastUpdated = &today

	if err := h.applications.Update(ctx, app); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	h.logger.Info("step rolled back", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"stepId":        stepID,
		"stepName":      input.StepName,
		"admin":         adminName,
		"reason":        reason,
	})

	return &Output{Application: app}, nil
}

func setAll(step *models.Step, values map[string]interface{}) error {
	for k, v := range values {
		if err := step.SetExtra(k, v); err != nil {
			return err
		}
	}
	return nil
}

func applyHistory(app *models.Application, steps []models.Step, embedded bool) error {
	encoded, err := models.EncodeSteps(steps)
	if err != nil {
		return err
	}
	app.StepHistory = encoded

	if embedded {
		app.AgentData, err = models.SetEmbeddedStepHistory(app.AgentData, steps)
	} else {
		app.AgentData, err = models.EnsureEmbeddedStepHistory(app.AgentData, steps)
	}
	return err
}

func appendAudit(app *models.Application, entry auditEntry) error {
	trail, err := models.DecodeAuditTrail(app.AuditTrail)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptHistory, err)
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	app.AuditTrail, err = models.EncodeAuditTrail(append(trail, raw))
	return err
}
