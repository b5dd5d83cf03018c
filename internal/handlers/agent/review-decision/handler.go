package reviewdecision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/notify"
	"insurance-backoffice/internal/repository"
)

const (
	Operation = "review-decision"
)

var (
	ErrInvalidRequest      = errors.New("INVALID_REQUEST")
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
)

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

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, apperrors.NewInvalidInputError("application_id is required").
			WithStatus(http.StatusUnprocessableEntity).
			WithCause(ErrInvalidRequest)
	}
	status, ok := statusForAction[input.Action]
	if !ok {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("action must be one of approve, reject, request_docs, escalate; got %q", input.Action)).
			WithStatus(http.StatusUnprocessableEntity).
			WithCause(ErrInvalidRequest)
	}

	app, err := h.applications.Locate(ctx, input.ApplicationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Application process", input.ApplicationID).
			WithCause(ErrApplicationNotFound)
	}
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	today := models.Today()
	app.Status = &status
	app.ReviewReason = input.Reason
	app.LastUpdated = &today

	if err := h.applications.Update(ctx, app); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	if app.Track == models.TrackClaim && app.ClaimRecordID != nil {
		h.propagateStatus(ctx, app, status)
	}

	h.resumeAgent(ctx, app, input)

	h.logger.Info("review decision recorded", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"action":        input.Action,
		"status":        status,
		"track":         app.Track.String(),
	})

	return &Output{
		Message:       fmt.Sprintf("Review action '%s' submitted successfully", input.Action),
		ApplicationID: input.ApplicationID,
	}, nil
}

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

// agentURL picks the claim agent for claim-track records.
func (h *Handler) agentURL(app *models.Application) string {
	if app.Track == models.TrackClaim ||
		(app.ApplicationType != nil && models.ParseTrack(*app.ApplicationType) == models.TrackClaim) {
		return h.config.ClaimAgentURL
	}
	return h.config.PolicyAgentURL
}

// resumeAgent queues the /approve call. Every action resumes the agent.
func (h *Handler) resumeAgent(ctx context.Context, app *models.Application, input *Input) {
	target := h.agentURL(app)

	n, err := notify.NewAgentApprove(target, notify.ApprovePayload{
		ApplicationID: input.ApplicationID,
		Action:        input.Action,
		OverrideNotes: input.Reason,
	}, h.config.NotifyTimeout)
	if err == nil {
		err = h.notifier.Enqueue(ctx, n)
	}
	if err != nil {
		h.logger.Warn("agent resume not queued", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"target":        target,
			"error":         apperrors.NewUpstreamNotificationError(target, err),
		})
	}
}
