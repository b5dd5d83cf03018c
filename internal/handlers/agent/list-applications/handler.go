package listapplications

import (
	"context"
	"database/sql"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/repository"
)

const (
	Operation = "list-applications"
)

type Handler struct {
	config       *Config
	applications *repository.Applications
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		applications: repository.NewApplications(db),
		logger:       log.WithFields(map[string]interface{}{"operation": Operation}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	track := models.ParseTrack(input.Type)
	filter := repository.ListFilter{Status: input.Status}
	if track == models.TrackPolicy {
		filter.ApplicationType = input.Type
	}

	apps, err := h.applications.List(ctx, track, filter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	h.logger.Debug("applications listed", map[string]interface{}{
		"track":  track.String(),
		"status": input.Status,
		"count":  len(apps),
	})
	return &Output{Applications: apps}, nil
}
