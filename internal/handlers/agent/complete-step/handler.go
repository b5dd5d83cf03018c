package completestep

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
	"insurance-backoffice/internal/notify"
	"insurance-backoffice/internal/repository"
)

const (
	Operation = "complete-step"
)

var (
	ErrInvalidRequest      = errors.New("INVALID_REQUEST")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
	ErrCorruptHistory      = errors.New("CORRUPT_STEP_HISTORY")
)

type Handler struct {
	config       *Config
	applications *repository.Applications
	notifier     notify.Enqueuer
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, notifier notify.Enqueuer, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		applications: repository.NewApplications(db),
		notifier:     notifier,
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
	if err := validate(input); err != nil {
		return nil, err
	}
	stepID := *input.StepID
	notes := *input.AdminNotes

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

	now := h.now().UTC().Format(time.RFC3339Nano)
	previousStatus := ""
	found := false
	for i := range steps {
		step := &steps[i]
		if !step.Matches(stepID, input.StepName) {
			continue
		}
		previousStatus = step.StatusValue()
		if previousStatus == "" {
			previousStatus = models.StepStatusPending
		}
		markCompleted(step, notes, now, input.AdminID)
		found = true
		break
	}

	if !found {
		previousStatus = models.StepStatusPending
		idRaw, _ := json.Marshal(stepID)
		step := models.Step{ID: idRaw, Name: models.StringPtr(input.StepName)}
		markCompleted(&step, notes, now, input.AdminID)
		_ = step.SetExtra("timestamp", now)
		_ = step.SetExtra("summary", "Manually completed by admin: "+notes)
		steps = append(steps, step)
	}

	if err := h.applyHistory(app, steps, embedded); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	adminName := adminNameFor(input.AdminID)
	if err := h.appendAudit(app, auditEntry{
		Timestamp:      now,
		Action:         "manual_step_completion",
		StepName:       input.StepName,
		StepID:         stepID,
		AdminName:      adminName,
		AdminID:        input.AdminID,
		AdminNotes:     notes,
		PreviousStatus: previousStatus,
		NewStatus:      models.StepStatusCompleted,
		Message:        fmt.Sprintf("Admin %s manually completed step '%s'", adminName, input.StepName),
	}); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	current := app.CurrentStepValue()
	if app.CurrentStep != nil && (current == input.StepName || current == strconv.Itoa(stepID)) {
		if next := nextOpenStep(steps); next != "" {
			app.CurrentStep = &next
		}
	}

	today := models.Today()
	app.LastUpdated = &today

	if err := h.applications.Update(ctx, app); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	h.logger.Info("step completed manually", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"stepId":        stepID,
		"stepName":      input.StepName,
		"admin":         adminName,
		"newStep":       app.CurrentStepValue(),
	})

	h.resumeAgent(ctx, app, input, stepID, notes)

	return &Output{Application: app}, nil
}

func validate(input *Input) error {
	var missing string
	switch {
	case input.ApplicationID == "":
		missing = "application_id"
	case input.StepID == nil:
		missing = "step_id"
	case input.StepName == "":
		missing = "step_name"
	case input.AdminNotes == nil:
		missing = "admin_notes"
	default:
		return nil
	}
	return apperrors.NewInvalidInputError(missing + " is required").
		WithStatus(http.StatusUnprocessableEntity).
		WithCause(ErrInvalidRequest)
}

func markCompleted(step *models.Step, notes, now string, adminID *string) {
	step.Status = models.StringPtr(models.StepStatusCompleted)
	step.CompletedBy = models.StringPtr(models.StepCompletedByHuman)
	step.AdminNotes = models.StringPtr(notes)
	step.CompletedAt = models.StringPtr(now)
	step.CompletionMethod = models.StringPtr("manual")
	if adminID != nil && *adminID != "" {
		step.AdminID = models.StringPtr(*adminID)
	}
}

// applyHistory writes steps to the column. agentData gains a copy when it has
// none, and its copy is refreshed when it was the source.
func (h *Handler) applyHistory(app *models.Application, steps []models.Step, embedded bool) error {
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

func (h *Handler) appendAudit(app *models.Application, entry auditEntry) error {
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

func nextOpenStep(steps []models.Step) string {
	for i := range steps {
		if steps[i].IsOpen() {
			if steps[i].Name == nil {
				return "unknown"
			}
			return *steps[i].Name
		}
	}
	return ""
}

func adminNameFor(adminID *string) string {
	if adminID != nil && *adminID != "" {
		return *adminID
	}
	return "Admin"
}

func (h *Handler) resumeAgent(ctx context.Context, app *models.Application, input *Input, stepID int, notes string) {
	target := h.config.PolicyAgentURL
	if app.Track == models.TrackClaim {
		target = h.config.ClaimAgentURL
	}

	n, err := notify.NewAgentResume(target, notify.ResumePayload{
		ApplicationID: input.ApplicationID,
		CompletedStep: input.StepName,
		Action:        "manual_complete",
		Notes:         notes,
		StepID:        stepID,
	}, h.config.ResumeTimeout)
	if err == nil {
		err = h.notifier.Enqueue(ctx, n)
	}
	if err != nil {
		h.logger.Warn("agent resume not queued", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"target":        target,
			"error":         err,
		})
	}
}
