package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"

	"github.com/aws/smithy-go"
)

const (
	msgStorageUnavailable = "Storage error: Unable to upload to cloud storage. Please try again or contact support if the issue persists."
	msgStorageTimeout     = "Upload timeout: The upload took too long. Please try again with a smaller file or check your connection."
)

// ClassifyPutError turns a failed Put into the error reported to the caller.
// Timeouts and store failures get fixed messages; anything else echoes the
// underlying error.
func ClassifyPutError(err error) *apperrors.StandardError {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewStorageTimeoutError(msgStorageTimeout, err)
	}

	var opErr *smithy.OperationError
	var apiErr smithy.APIError
	var netOpErr *net.OpError
	if errors.Is(err, ErrNotConfigured) || errors.As(err, &opErr) || errors.As(err, &apiErr) || errors.As(err, &netOpErr) {
		return apperrors.NewStorageUnavailableError(msgStorageUnavailable, err)
	}

	return (&apperrors.StandardError{
		Code:      apperrors.ErrCodeInternal,
		Message:   fmt.Sprintf("Upload failed: %v. Please try again.", err),
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}
