package createclaimapplication

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "insurance-backoffice/internal/common/errors"
	"insurance-backoffice/internal/common/logger"
	"insurance-backoffice/internal/storage/docstore"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// fakeCluster accepts document creates and keeps the stored sources.
type fakeCluster struct {
	mu   sync.Mutex
	docs map[string]map[string]interface{}
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || (parts[1] != "_doc" && parts[1] != "_create") || r.Method == http.MethodGet {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var source map[string]interface{}
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &source)

	f.mu.Lock()
	f.docs[parts[2]] = source
	f.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"result":"created"}`))
}

func (f *fakeCluster) get(id string) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[id]
}

var fixedNow = time.Date(2024, 9, 3, 8, 15, 0, 0, time.UTC)

func newCluster(t *testing.T) (*docstore.Elasticsearch, *fakeCluster) {
	t.Helper()
	cluster := &fakeCluster{docs: map[string]map[string]interface{}{}}
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return docstore.NewElasticsearch(client, "claims", time.Second), cluster
}

func newHandler(t *testing.T, docs docstore.Store) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(LoadConfig(2*time.Second), docs, db, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	h.newID = func() string { return "CLM-fixed" }
	return h, mock
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

func TestExecute_StoresRecordWithClaimAndTracking(t *testing.T) {
	store, cluster := newCluster(t)
	h, mock := newHandler(t, store)

	mock.ExpectQuery(`INSERT INTO claims`).
		WithArgs(int64(7), int64(12), "Life", 2500.0, "Submitted", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectQuery(`INSERT INTO application_processes`).
		WithArgs("CLM-fixed", nil, "7", "Submitted", "ingest", sqlmock.AnyArg(), sqlmock.AnyArg(), "{}", "[]", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	out, err := h.Execute(context.Background(), &Input{Fields: fields(t, `{
		"userId": 7,
		"policy_id": "12",
		"claim_type": "Life",
		"claim": {"amount": 2500},
		"nominee": {"name": "A"}
	}`)})
	require.NoError(t, err)
	assert.Equal(t, &Output{ID: "CLM-fixed"}, out)
	require.NoError(t, mock.ExpectationsWereMet())

	stored, err := json.Marshal(cluster.get("CLM-fixed"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": 7,
		"policy_id": "12",
		"claim_type": "Life",
		"claim": 41,
		"nominee": {"name": "A"},
		"created_at": "2024-09-03T08:15:00Z",
		"updated_at": "2024-09-03T08:15:00Z"
	}`, string(stored))
}

func TestExecute_KeepsCreatedAtWithoutClaimObject(t *testing.T) {
	store, cluster := newCluster(t)
	h, mock := newHandler(t, store)

	mock.ExpectQuery(`INSERT INTO application_processes`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))

	_, err := h.Execute(context.Background(), &Input{Fields: fields(t, `{
		"user_id": "U-3",
		"claim": 17,
		"created_at": "2024-01-01T00:00:00Z"
	}`)})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "a non-object claim creates no master row")

	doc := cluster.get("CLM-fixed")
	assert.Equal(t, "2024-01-01T00:00:00Z", doc["created_at"])
	assert.Equal(t, "2024-09-03T08:15:00Z", doc["updated_at"])
	assert.Equal(t, float64(17), doc["claim"])
}

// ==========================
// Error Handling Tests
// ==========================

func TestExecute_RelationalFailuresAreBestEffort(t *testing.T) {
	store, cluster := newCluster(t)
	h, mock := newHandler(t, store)

	mock.ExpectQuery(`INSERT INTO claims`).WillReturnError(errors.New("connection reset"))
	mock.ExpectQuery(`INSERT INTO application_processes`).WillReturnError(errors.New("connection reset"))

	out, err := h.Execute(context.Background(), &Input{Fields: fields(t, `{"userId":"7","claim":{"status":"Draft"}}`)})
	require.NoError(t, err)
	assert.Equal(t, "CLM-fixed", out.ID)
	require.NoError(t, mock.ExpectationsWereMet())

	doc := cluster.get("CLM-fixed")
	assert.Equal(t, map[string]interface{}{"status": "Draft"}, doc["claim"])
}

func TestExecute_StoreUnavailable(t *testing.T) {
	h, mock := newHandler(t, docstore.Unconfigured{})

	_, err := h.Execute(context.Background(), &Input{Fields: fields(t, `{"userId":"7"}`)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStorageUnavailable))
	assert.True(t, errors.Is(err, docstore.ErrNotConfigured))

	stdErr, _ := apperrors.AsStandard(err)
	assert.Equal(t, http.StatusInternalServerError, stdErr.Status())
	assert.NoError(t, mock.ExpectationsWereMet(), "no tracking row without a stored record")
}
