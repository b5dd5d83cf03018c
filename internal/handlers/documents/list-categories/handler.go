package listcategories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/pkg/registry"
)

const (
	Operation = "list-categories"
)

var (
	ErrUnknownClaimType = errors.New("UNKNOWN_CLAIM_TYPE")
)

type Handler struct {
	config   *Config
	registry *registry.Registry
	logger   logger.Logger
}

func NewHandler(config *Config, reg *registry.Registry, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		registry: reg,
		logger:   log.WithFields(map[string]interface{}{"operation": Operation}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	claimType := strings.ToLower(strings.TrimSpace(input.ClaimType))
	for _, known := range h.registry.ClaimTypes() {
		if known == claimType {
			return &Output{
				ClaimType:  claimType,
				Version:    h.registry.Version(),
				Categories: h.registry.AllCategories(claimType),
				Mappings:   h.registry.Mappings(claimType),
			}, nil
		}
	}

	return nil, apperrors.NewNotFoundError("Claim type", fmt.Sprintf(
		"known claim types: %s", strings.Join(h.registry.ClaimTypes(), ", "))).
		WithCause(ErrUnknownClaimType)
}
