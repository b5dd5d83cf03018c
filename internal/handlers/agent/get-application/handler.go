package getapplication

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/repository"
	"insurance-backoffice/internal/storage/docstore"
)

const (
	Operation = "get-application"
)

var (
	ErrApplicationNotFound = errors.New("APPLICATION_NOT_FOUND")
)

type Handler struct {
	config       *Config
	applications *repository.Applications
	docs         docstore.Store
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, db *sql.DB, docs docstore.Store, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		applications: repository.NewApplications(db),
		docs:         docs,
		logger:       log.WithFields(map[string]interface{}{"operation": Operation}),
		now:          time.Now,
	}
}

// Execute looks the id up in the policy table, the claim table and finally
// the document store.
func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	for _, track := range []models.Track{models.TrackPolicy, models.TrackClaim} {
		app, err := h.applications.FindByApplicationID(ctx, track, input.ApplicationID)
		if err == nil {
			source := SourcePolicyTable
			if track == models.TrackClaim {
				source = SourceClaimTable
			}
			return &Output{Application: app, Source: source}, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
	}

	app, err := h.repair(ctx, input.ApplicationID)
	if err != nil {
		h.logger.Warn("document store fallback failed", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"error":         err,
		})
	}
	if app == nil {
		return nil, apperrors.NewNotFoundError("Application process", input.ApplicationID).
			WithCause(ErrApplicationNotFound)
	}

	h.logger.Info("application rebuilt from document store", map[string]interface{}{
		"applicationId": input.ApplicationID,
		"pseudoId":      app.ID,
		"status":        app.StatusValue(),
	})
	return &Output{Application: app, Source: SourceDocstore}, nil
}

// repair returns nil, nil when the document store has no record.
func (h *Handler) repair(ctx context.Context, applicationID string) (*models.Application, error) {
	doc, err := h.docs.FindByID(ctx, applicationID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	app, err := Repair(applicationID, doc, h.now())
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild application: %w", err)
	}
	return app, nil
}
