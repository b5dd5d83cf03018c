package deletedocument

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/documents/folder"
	"insurance-backoffice/internal/repository"
	"insurance-backoffice/internal/storage/objectstore"
)

const (
	Operation = "delete-document"
)

var (
	ErrDocumentNotFound = errors.New("DOCUMENT_NOT_FOUND")
)

type Handler struct {
	config       *Config
	store        objectstore.Store
	introspector *folder.Introspector
	documents    *repository.Documents
	logger       logger.Logger
}

func NewHandler(config *Config, db *sql.DB, store objectstore.Store, introspector *folder.Introspector, log logger.Logger) *Handler {
	return &Handler{
		config:       config,
		store:        store,
		introspector: introspector,
		documents:    repository.NewDocuments(db),
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
	doc, err := h.documents.FindByID(ctx, input.DocumentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound()
	}
	if err != nil {
		return nil, deleteFailed(err)
	}

	key, ok := h.introspector.ExtractKey(doc.DocumentURL)
	if !ok {
		key = path.Base(doc.DocumentURL)
	}

	removed, err := h.store.Delete(ctx, key)
	switch {
	case errors.Is(err, objectstore.ErrNotConfigured):
		h.logger.Warn("object store not configured, only the record is removed", map[string]interface{}{
			"documentId": doc.ID,
			"key":        key,
		})
	case err != nil:
		return nil, deleteFailed(err)
	case !removed:
		h.logger.Info("stored object already absent", map[string]interface{}{"key": key})
	}

	if err := h.documents.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound()
		}
		return nil, deleteFailed(err)
	}

	h.logger.Info("document deleted", map[string]interface{}{
		"documentId": doc.ID,
		"key":        key,
	})
	return &Output{Message: "Document deleted successfully"}, nil
}

func notFound() *apperrors.StandardError {
	return (&apperrors.StandardError{
		Code:      apperrors.ErrCodeNotFound,
		Message:   "Document not found",
		Timestamp: time.Now().UTC(),
	}).WithCause(ErrDocumentNotFound)
}

func deleteFailed(err error) *apperrors.StandardError {
	stdErr := apperrors.NewInternalError(err)
	stdErr.Message = fmt.Sprintf("Error deleting document: %v", err)
	return stdErr
}
