package createclaimapplication

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/repository"
	"insurance-backoffice/internal/storage/docstore"

	"github.com/google/uuid"
)

const (
	Operation = "create-claim-application"
)

type Handler struct {
	config       *Config
	docs         docstore.Store
	applications *repository.Applications
	claims       *repository.Claims
	logger       logger.Logger
	now          func() time.Time
	newID        func() string
}

func NewHandler(config *Config, docs docstore.Store, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		docs:         docs,
		applications: repository.NewApplications(db),
		claims:       repository.NewClaims(db),
		logger:       log.WithFields(map[string]interface{}{"operation": Operation}),
		now:          time.Now,
		newID:        uuid.NewString,
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
	now := h.now().UTC()

	doc := make(map[string]interface{}, len(input.Fields)+2)
	for k, v := range input.Fields {
		doc[k] = v
	}

	if claimID, ok := h.createClaim(ctx, input.Fields, now); ok {
		doc["claim"] = claimID
	}

	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now.Format(time.RFC3339Nano)
	}
	doc["updated_at"] = now.Format(time.RFC3339Nano)

	id := h.newID()
	if err := h.docs.Insert(ctx, id, doc); err != nil {
		h.logger.Error("claim application insert failed", map[string]interface{}{
			"id":    id,
			"error": err,
		})
		return nil, apperrors.NewStorageUnavailableError("Claim application store is unavailable", err)
	}

	h.track(ctx, id, input.Fields, now)

	h.logger.Info("claim application created", map[string]interface{}{
		"id":   id,
		"keys": len(input.Fields),
	})
	return &Output{ID: id}, nil
}

// createClaim writes the master claim row when the record carries a nested
// claim object. Failures are logged and the record is stored without it.
func (h *Handler) createClaim(ctx context.Context, fields map[string]json.RawMessage, now time.Time) (int, bool) {
	raw, ok := fields["claim"]
	if !ok || !isObject(raw) {
		return 0, false
	}

	var req claimRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.logger.Warn("claim object ignored", map[string]interface{}{"error": err})
		return 0, false
	}

	status := initialStatus
	if req.Status != nil {
		status = *req.Status
	}
	today := models.NewDate(now)
	claim := &models.Claim{
		UserID:      intField(fields, "user_id", "userId"),
		PolicyID:    intField(fields, "policy_id", "policyId"),
		ClaimType:   stringField(fields, "claim_type", "claimType"),
		Status:      &status,
		LastUpdated: &today,
	}
	if req.Amount != nil {
		claim.Amount = *req.Amount
	}

	if err := h.claims.Create(ctx, claim); err != nil {
		h.logger.Warn("master claim not created", map[string]interface{}{"error": err})
		return 0, false
	}
	return claim.ID, true
}

// track adds the process row the admin panel lists. Failures are logged.
func (h *Handler) track(ctx context.Context, id string, fields map[string]json.RawMessage, now time.Time) {
	status, step := initialStatus, initialStep
	today := models.NewDate(now)
	app := &models.Application{
		Track:         models.TrackPolicy,
		ApplicationID: id,
		CustomerID:    stringField(fields, "user_id", "userId"),
		Status:        &status,
		CurrentStep:   &step,
		StartTime:     &today,
		LastUpdated:   &today,
		AgentData:     json.RawMessage(`{}`),
		StepHistory:   json.RawMessage(`[]`),
	}
	if err := h.applications.Insert(ctx, app); err != nil {
		h.logger.Warn("application process tracking not created", map[string]interface{}{
			"id":    id,
			"error": err,
		})
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// stringField returns the first present key as text. Numbers keep their
// literal form; null and empty values count as absent.
func stringField(fields map[string]json.RawMessage, keys ...string) *string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return &s
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			s = n.String()
			return &s
		}
	}
	return nil
}

func intField(fields map[string]json.RawMessage, keys ...string) *int {
	s := stringField(fields, keys...)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil
	}
	return &n
}
