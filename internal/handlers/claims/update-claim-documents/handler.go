package updateclaimdocuments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/documents/folder"
	"insurance-backoffice/internal/storage/docstore"
	"insurance-backoffice/pkg/registry"
)

const (
	Operation = "update-claim-documents"
)

var (
	ErrInvalidDocuments = errors.New("INVALID_DOCUMENTS")
	ErrClaimNotFound    = errors.New("CLAIM_APPLICATION_NOT_FOUND")
)

type Handler struct {
	config       *Config
	docs         docstore.Store
	registry     *registry.Registry
	introspector *folder.Introspector
	logger       logger.Logger
	now          func() time.Time
}

func NewHandler(config *Config, docs docstore.Store, reg *registry.Registry, introspector *folder.Introspector, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		docs:         docs,
		registry:     reg,
		introspector: introspector,
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
	var summary *DocumentSummary
	if raw, ok := input.Fields["documents"]; ok {
		var docs []claimDocument
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, apperrors.NewInvalidInputError("documents must be a list of objects").
				WithStatus(http.StatusUnprocessableEntity).
				WithCause(ErrInvalidDocuments)
		}
		summary = h.analyse(ctx, input.ApplicationID, docs)
	}

	fields := make(map[string]interface{}, len(input.Fields)+1)
	for k, v := range input.Fields {
		fields[k] = v
	}
	fields["updated_at"] = h.now().UTC().Format(time.RFC3339Nano)

	res, err := h.docs.Update(ctx, input.ApplicationID, fields)
	if err != nil {
		return nil, apperrors.NewStorageUnavailableError("Claim application store is unavailable", err)
	}
	if !res.Matched {
		return nil, apperrors.NewNotFoundError("Claim application", input.ApplicationID).
			WithCause(ErrClaimNotFound)
	}

	modified := 0
	if res.Modified {
		modified = 1
	}

	logFields := map[string]interface{}{
		"applicationId": input.ApplicationID,
		"modified":      modified,
		"keys":          len(input.Fields),
	}
	if summary != nil {
		logFields["documents"] = summary.Total
		logFields["categoryFolders"] = summary.CategoryFolders
		logFields["legacyFolders"] = summary.LegacyFolders
	}
	h.logger.Info("claim application updated", logFields)

	return &Output{ModifiedCount: modified, Documents: summary}, nil
}

// analyse checks each document against the claim's category set and its own
// folder. Findings are reported, never enforced.
func (h *Handler) analyse(ctx context.Context, applicationID string, docs []claimDocument) *DocumentSummary {
	summary := &DocumentSummary{Total: len(docs), Warnings: []string{}}
	warn := func(format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		summary.Warnings = append(summary.Warnings, msg)
		h.logger.Warn(msg, map[string]interface{}{"applicationId": applicationID})
	}

	claimType := h.claimType(ctx, applicationID)

	for i, doc := range docs {
		n := i + 1
		if missing := doc.missingFields(); len(missing) > 0 {
			warn("document %d missing fields: %s", n, strings.Join(missing, ", "))
		}

		if doc.URL != "" {
			if h.introspector.HasCategoryFolder(doc.URL) {
				summary.CategoryFolders++
			} else {
				summary.LegacyFolders++
			}
		}

		if doc.Category == "" {
			continue
		}
		normalized := registry.Normalize(doc.Category)

		if claimType != "" && !h.registry.IsValid(claimType, normalized) {
			warn("document %d category '%s' (normalized: '%s') may not be valid for claim type '%s'",
				n, doc.Category, normalized, claimType)
		}

		if doc.URL == "" {
			continue
		}
		if dir, ok := h.introspector.ExtractFolder(doc.URL); ok && !strings.Contains(dir, normalized) {
			warn("document %d category '%s' may not match folder structure: %s", n, doc.Category, dir)
		}
	}
	return summary
}

func (h *Handler) claimType(ctx context.Context, applicationID string) string {
	existing, err := h.docs.FindByID(ctx, applicationID)
	if err != nil {
		h.logger.Debug("claim type unavailable", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err,
		})
		return ""
	}
	if ct := existing.String("claim_type"); ct != "" {
		return strings.ToLower(ct)
	}
	return strings.ToLower(existing.String("claimType"))
}

func (d claimDocument) missingFields() []string {
	values := map[string]string{
		"filename": d.Filename,
		"url":      d.URL,
		"docType":  d.DocType,
		"category": d.Category,
	}
	var missing []string
	for _, f := range requiredDocumentFields {
		if values[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}
