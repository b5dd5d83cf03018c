package uploaddocument

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/common/metrics"
	"insurance-backoffice/internal/documents/folder"
	"insurance-backoffice/internal/models"
	"insurance-backoffice/internal/repository"
	"insurance-backoffice/internal/storage/objectstore"
	"insurance-backoffice/pkg/registry"

	"github.com/google/uuid"
)

const (
	Operation = "upload-document"
)

var (
	ErrInvalidUser         = errors.New("INVALID_USER_ID")
	ErrInvalidDocumentType = errors.New("INVALID_DOCUMENT_TYPE")
	ErrInvalidFile         = errors.New("INVALID_FILE")
	ErrRecordFailed        = errors.New("DOCUMENT_RECORD_FAILED")
)

type Handler struct {
	config    *Config
	store     objectstore.Store
	documents *repository.Documents
	logger    logger.Logger
	newName   func(ext string) string
}

func NewHandler(config *Config, db *sql.DB, store objectstore.Store, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		store:     store,
		documents: repository.NewDocuments(db),
		logger:    log.WithFields(map[string]interface{}{"operation": Operation}),
		newName:   func(ext string) string { return uuid.NewString() + ext },
	}
}

// Execute validates the file, stores it under the derived folder and records
// its metadata. Nothing is stored or recorded when validation fails.
func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	start := time.Now()
	defer func() { metrics.Record(Operation, start, apperrors.CodeOf(err)) }()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	return h.execute(ctx, input)
}

type validated struct {
	userID       int
	documentType string
	policyID     *int
	claimID      *int
	category     *string
	ext          string
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	v, err := h.validate(input)
	if err != nil {
		return nil, err
	}

	dir := folder.Derive(v.userID, v.documentType, v.claimID, v.category)
	key := objectstore.JoinKey(dir, h.newName(v.ext))
	size := int64(len(input.Content))

	h.logger.Info("storing document", map[string]interface{}{
		"userId":       v.userID,
		"documentType": v.documentType,
		"folder":       dir,
		"backend":      h.store.Backend(),
		"size":         size,
	})

	putCtx, cancel := context.WithTimeout(ctx, h.config.StorageTimeout)
	address, err := h.store.Put(putCtx, key, input.Content, contentType(input.ContentType, v.ext))
	cancel()
	if err != nil {
		stdErr := objectstore.ClassifyPutError(err)
		h.logger.Error("object store put failed", map[string]interface{}{
			"key":       key,
			"errorCode": string(stdErr.Code),
			"error":     err,
		})
		return nil, stdErr
	}
	metrics.UploadedBytes.WithLabelValues(h.store.Backend()).Add(float64(size))

	doc := &models.Document{
		UserID:       v.userID,
		PolicyID:     v.policyID,
		DocumentType: v.documentType,
		DocumentURL:  address,
		UploadDate:   models.Today(),
		FileSize:     size,
	}
	if err := h.documents.Insert(ctx, doc); err != nil {
		h.logger.Error("document record insert failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		h.removeOrphan(ctx, key)
		stdErr := apperrors.NewInternalError(err)
		stdErr.Message = "Failed to save document record. Please try again."
		return nil, stdErr.WithCause(fmt.Errorf("%w: %v", ErrRecordFailed, err))
	}

	h.logger.Info("document uploaded", map[string]interface{}{
		"documentId": doc.ID,
		"url":        address,
	})

	return &Output{
		Success:      true,
		DocumentID:   doc.ID,
		FileName:     input.FileName,
		FileURL:      address,
		FileSize:     size,
		DocumentType: v.documentType,
		Message:      "Document uploaded successfully",
	}, nil
}

// removeOrphan drops a stored object whose record could not be written.
func (h *Handler) removeOrphan(ctx context.Context, key string) {
	delCtx, cancel := context.WithTimeout(ctx, h.config.StorageTimeout)
	defer cancel()

	if _, err := h.store.Delete(delCtx, key); err != nil {
		h.logger.Warn("orphaned object left in store", map[string]interface{}{
			"key":   key,
			"error": err,
		})
	}
}

func (h *Handler) validate(input *Input) (*validated, error) {
	rawUser := strings.TrimSpace(input.UserID)
	if rawUser == "" {
		return nil, apperrors.NewInvalidInputError("userId is required").WithCause(ErrInvalidUser)
	}
	userID, err := strconv.Atoi(rawUser)
	if err != nil || userID <= 0 {
		return nil, apperrors.NewInvalidInputError("userId must be a valid integer").WithCause(ErrInvalidUser)
	}

	documentType := strings.TrimSpace(input.DocumentType)
	if documentType == "" {
		return nil, apperrors.NewInvalidInputError("documentType is required and cannot be empty").
			WithCause(ErrInvalidDocumentType)
	}
	if !folder.IsAllowedDocumentType(documentType) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf(
			"Invalid documentType: '%s'. Allowed types are: %s",
			documentType, strings.Join(folder.AllowedDocumentTypes(), ", "))).
			WithCause(ErrInvalidDocumentType)
	}

	if strings.TrimSpace(input.FileName) == "" {
		return nil, apperrors.NewInvalidInputError("File name is required").WithCause(ErrInvalidFile)
	}
	ext := filepath.Ext(input.FileName)
	if !allowedExtensions[strings.ToLower(ext)] {
		return nil, apperrors.NewUnsupportedMediaTypeError(fmt.Sprintf(
			"Invalid file type. Allowed extensions are: %s", strings.Join(sortedExtensions(), ", "))).
			WithCause(ErrInvalidFile)
	}

	size := int64(len(input.Content))
	if size == 0 {
		return nil, apperrors.NewInvalidInputError("File is empty. Please upload a valid file.").WithCause(ErrInvalidFile)
	}
	if size > h.config.MaxFileBytes {
		return nil, apperrors.NewPayloadTooLargeError(fmt.Sprintf(
			"File size (%.2f MB) exceeds maximum allowed size (%.1f MB). Please upload a smaller file.",
			megabytes(size), megabytes(h.config.MaxFileBytes))).
			WithCause(ErrInvalidFile)
	}

	v := &validated{
		userID:       userID,
		documentType: documentType,
		policyID:     optionalInt(input.PolicyID),
		claimID:      optionalInt(input.ClaimID),
		ext:          ext,
	}
	// A category that normalizes to nothing keeps the legacy folder.
	if raw := strings.TrimSpace(input.Category); raw != "" {
		normalized := registry.Normalize(raw)
		v.category = &normalized
	}
	return v, nil
}

func optionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

func sortedExtensions() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func megabytes(n int64) float64 {
	return float64(n) / (1024 * 1024)
}

func contentType(declared, ext string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if t := mime.TypeByExtension(strings.ToLower(ext)); t != "" {
		return t
	}
	return "application/octet-stream"
}
