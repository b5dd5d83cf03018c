package syncapplication

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/common/validation"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/notify"
	"insurance-backoffice/internal/repository"
)

const (
	Operation = "sync-application"
)

var (
	ErrInvalidPayload = errors.New("INVALID_PAYLOAD")
	ErrSyncFailed     = errors.New("SYNC_FAILED")
)

var schema = validation.MustCompile(payloadSchema)

type Handler struct {
	config       *Config
	applications *repository.Applications
	claims       *repository.Claims
	notifier     notify.Enqueuer
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, notifier notify.Enqueuer, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		applications: repository.NewApplications(db),
		claims:       repository.NewClaims(db),
		notifier:     notifier,
		logger:       log.WithFields(map[string]interface{}{"operation": Operation}),
	}
}

// Execute creates or updates the application named by the payload.
func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	patch, err := h.decode(input)
	if err != nil {
		return nil, err
	}

	output, err = h.execute(ctx, patch)
	if err != nil {
		h.logger.Error("sync failed", map[string]interface{}{
			"applicationId": patch.ApplicationID,
			"track":         patch.Track.String(),
			"error":         err,
		})
		// The agent reads this message in its own logs.
		stdErr := apperrors.NewInternalError(err)
		stdErr.Message = "Backend Exception: " + err.Error()
		return nil, stdErr
	}
	return output, nil
}

func (h *Handler) decode(input *Input) (*models.ApplicationPatch, error) {
	if input == nil || len(input.Payload) == 0 {
		return nil, invalid("request body is required")
	}

	result, err := schema.ValidateBytes(input.Payload)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if !result.Valid {
		return nil, invalid(strings.Join(result.Messages(), "; "))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input.Payload, &fields); err != nil {
		return nil, invalid(err.Error())
	}

	patch, err := models.DecodeApplicationPatch(fields)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if patch.ApplicationID == "" {
		return nil, invalid("applicationId is required")
	}
	return patch, nil
}

func (h *Handler) execute(ctx context.Context, patch *models.ApplicationPatch) (*Output, error) {
	if len(patch.Extra) > 0 {
		h.logger.Debug("dropping fields without a column", map[string]interface{}{
			"applicationId": patch.ApplicationID,
			"fields":        patch.ExtraKeys(),
		})
	}

	action := ActionUpdated
	app, err := h.applications.FindByApplicationID(ctx, patch.Track, patch.ApplicationID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		action = ActionCreated
		app = &models.Application{Track: patch.Track}
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	patch.ApplyTo(app)
	today := models.Today()
	app.LastUpdated = &today

	if action == ActionCreated {
		err = h.applications.Insert(ctx, app)
	} else {
		err = h.applications.Update(ctx, app)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	if app.Track == models.TrackClaim && app.ClaimRecordID != nil && patch.Status != nil {
		h.propagateStatus(ctx, app, *patch.Status)
	}

	h.logger.Info("application synced", map[string]interface{}{
		"applicationId": app.ApplicationID,
		"track":         app.Track.String(),
		"action":        action,
		"status":        app.StatusValue(),
	})

	return &Output{Status: "success", Action: action, ID: app.ApplicationID}, nil
}

// propagateStatus copies the status onto the master claim. Failures are logged
// and never fail the sync.
func (h *Handler) propagateStatus(ctx context.Context, app *models.Application, status string) {
	claimID := *app.ClaimRecordID
	if err := h.claims.UpdateStatus(ctx, claimID, status); err != nil {
		h.logger.Warn("master claim status update failed", map[string]interface{}{
			"applicationId": app.ApplicationID,
			"claimId":       claimID,
			"error":         err,
		})
		return
	}

	n, err := notify.NewClaimStatus(notify.ClaimStatusEvent{
		ClaimID:       claimID,
		ApplicationID: app.ApplicationID,
		Status:        status,
		Source:        Operation,
	})
	if err == nil {
		err = h.notifier.Enqueue(ctx, n)
	}
	if err != nil {
		h.logger.Warn("claim status event not queued", map[string]interface{}{
			"claimId": claimID,
			"error":   err,
		})
	}
}

func invalid(msg string) error {
	return apperrors.NewInvalidInputError(msg).
		WithStatus(http.StatusUnprocessableEntity).
		WithCause(ErrInvalidPayload)
}
