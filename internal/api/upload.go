package api

import (
	"errors"
	"io"
	"net/http"

	apperrors "insurance-backoffice/internal/common/errors"
	uploaddocument "insurance-backoffice/internal/handlers/documents/upload-document"
)

// multipartOverhead leaves room for the form fields next to the file so an
// oversized file still reaches the size check and gets its measured size
// reported.
const multipartOverhead = 1 << 20

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 2*s.opts.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errors.WriteError(w, r, apperrors.NewPayloadTooLargeError("Request body too large"))
			return
		}
		s.errors.WriteError(w, r, invalidBody(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errors.WriteError(w, r, apperrors.NewInvalidInputError("file is required").
			WithStatus(http.StatusUnprocessableEntity))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.errors.WriteError(w, r, invalidBody(err))
		return
	}

	out, err := s.handlers.Upload.Execute(r.Context(), &uploaddocument.Input{
		UserID:       r.FormValue("userId"),
		DocumentType: r.FormValue("documentType"),
		PolicyID:     r.FormValue("policyId"),
		ClaimID:      r.FormValue("claimId"),
		Category:     r.FormValue("category"),
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Content:      content,
	})
	if err != nil {
		s.errors.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
