package updateclaimdocuments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/documents/folder"
	"insurance-backoffice/internal/storage/docstore"
	"insurance-backoffice/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeDocStore struct {
	docs      map[string]docstore.Document
	updateErr error
	updated   map[string]interface{}
}

func (f *fakeDocStore) FindByID(_ context.Context, id string) (docstore.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocStore) Insert(context.Context, string, map[string]interface{}) error {
	return errors.New("not used")
}

func (f *fakeDocStore) Update(_ context.Context, id string, fields map[string]interface{}) (*docstore.UpdateResult, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.docs[id]; !ok {
		return &docstore.UpdateResult{}, nil
	}
	f.updated = fields
	return &docstore.UpdateResult{Matched: true, Modified: true}, nil
}

var fixedNow = time.Date(2024, 9, 3, 8, 15, 0, 0, time.UTC)

func newHandler(t *testing.T, store docstore.Store) *Handler {
	reg, err := registry.Default()
	require.NoError(t, err)
	log := logger.NewTestLogger(t)
	h := NewHandler(LoadConfig(2*time.Second), store, reg, folder.NewIntrospector(log), log)
	h.now = func() time.Time { return fixedNow }
	return h
}

func lifeClaim() *fakeDocStore {
	return &fakeDocStore{docs: map[string]docstore.Document{
		"CLM-9": {
			"_id":        json.RawMessage(`"CLM-9"`),
			"claim_type": json.RawMessage(`"Life"`),
		},
	}}
}

func fields(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_MergesFieldsAndStampsUpdate(t *testing.T) {
	store := lifeClaim()
	h := newHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{
		ApplicationID: "CLM-9",
		Fields:        fields(t, `{"status":"submitted","nominee":{"name":"A"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.ModifiedCount)
	assert.Nil(t, out.Documents)

	encoded, err := json.Marshal(store.updated)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"status": "submitted",
		"nominee": {"name": "A"},
		"updated_at": "2024-09-03T08:15:00Z"
	}`, string(encoded))
}

func TestExecute_AnalysesDocuments(t *testing.T) {
	store := lifeClaim()
	h := newHandler(t, store)

	body := `{"documents":[
		{"filename":"dc.pdf","url":"http://localhost:8000/uploads/claims/9/death-certificate/a.pdf","docType":"claim_document","category":"Death Certificate"},
		{"filename":"old.pdf","url":"https://s3.eu-west-1.amazonaws.com/insurance-documents/claims/9/b.pdf","docType":"claim_document","category":"claim-form"},
		{"filename":"x.pdf","url":"http://localhost:8000/uploads/claims/pending/3/hospital-bills/c.pdf","docType":"claim_document","category":"Hospital Bills"},
		{"filename":"y.pdf","docType":"claim_document"}
	]}`

	out, err := h.Execute(context.Background(), &Input{ApplicationID: "CLM-9", Fields: fields(t, body)})
	require.NoError(t, err)
	require.NotNil(t, out.Documents)

	summary := out.Documents
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.CategoryFolders)
	assert.Equal(t, 1, summary.LegacyFolders)
	assert.Contains(t, summary.Warnings, "document 2 category 'claim-form' may not match folder structure: claims/9")
	assert.Contains(t, summary.Warnings, "document 3 category 'Hospital Bills' (normalized: 'hospital-bills') may not be valid for claim type 'life'")
	assert.Contains(t, summary.Warnings, "document 4 missing fields: url, category")

	// documents are stored as sent
	assert.Contains(t, store.updated, "documents")
}

// ==========================
// Error Handling Tests
// ==========================

func TestExecute_NotFound(t *testing.T) {
	h := newHandler(t, lifeClaim())

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "CLM-404",
		Fields:        fields(t, `{"status":"x"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClaimNotFound))

	stdErr, _ := apperrors.AsStandard(err)
	assert.Equal(t, http.StatusNotFound, stdErr.Status())
	assert.Equal(t, "Claim application not found", stdErr.Message)
}

func TestExecute_InvalidDocuments(t *testing.T) {
	store := lifeClaim()
	h := newHandler(t, store)

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "CLM-9",
		Fields:        fields(t, `{"documents":"not-a-list"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDocuments))
	assert.Nil(t, store.updated)
}

func TestExecute_StoreUnavailable(t *testing.T) {
	h := newHandler(t, docstore.Unconfigured{})

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "CLM-9",
		Fields:        fields(t, `{"status":"x"}`),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageUnavailable))
	assert.True(t, errors.Is(err, docstore.ErrNotConfigured))
}
