package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"insurance-backoffice/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var claimColumns = []string{
	"id", "application_id", "application_type", "customer_id", "status", "current_step",
	"start_time", "last_updated", "agent_data", "step_history", "audit_trail", "review_reason",
	"claim_record_id",
}

// ==========================
// Applications
// ==========================

func TestFindByApplicationID_Claim(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, application_id, .*claim_record_id FROM claim_applications WHERE application_id = \$1`).
		WithArgs("CLM-1").
		WillReturnRows(sqlmock.NewRows(claimColumns).AddRow(
			7, "CLM-1", "claim", "42", "ingest", "ingest",
			day, day, []byte(`{"k":1}`), []byte(`[]`), nil, nil,
			int64(3),
		))

	app, err := NewApplications(db).FindByApplicationID(context.Background(), models.TrackClaim, "CLM-1")
	require.NoError(t, err)
	assert.Equal(t, 7, app.ID)
	assert.Equal(t, models.TrackClaim, app.Track)
	assert.Equal(t, "ingest", app.StatusValue())
	assert.Equal(t, "42", *app.CustomerID)
	assert.JSONEq(t, `{"k":1}`, string(app.AgentData))
	assert.Nil(t, app.AuditTrail)
	assert.Nil(t, app.ReviewReason)
	require.NotNil(t, app.ClaimRecordID)
	assert.Equal(t, 3, *app.ClaimRecordID)
	assert.Equal(t, "2024-03-01", app.StartTime.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByApplicationID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM application_processes WHERE application_id = \$1`).
		WithArgs("APP-404").
		WillReturnRows(sqlmock.NewRows(claimColumns[:12]))

	_, err = NewApplications(db).FindByApplicationID(context.Background(), models.TrackPolicy, "APP-404")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocate_FallsBackToClaimTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM application_processes`).
		WithArgs("CLM-2").
		WillReturnRows(sqlmock.NewRows(claimColumns[:12]))
	mock.ExpectQuery(`FROM claim_applications`).
		WithArgs("CLM-2").
		WillReturnRows(sqlmock.NewRows(claimColumns).AddRow(
			9, "CLM-2", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil,
		))

	app, err := NewApplications(db).Locate(context.Background(), "CLM-2")
	require.NoError(t, err)
	assert.Equal(t, 9, app.ID)
	assert.Equal(t, models.TrackClaim, app.Track)
	assert.Nil(t, app.ClaimRecordID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_PolicyOmitsClaimRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	today := models.Today()
	app := &models.Application{
		Track:         models.TrackPolicy,
		ApplicationID: "APP-1",
		Status:        models.StringPtr("submitted"),
		LastUpdated:   &today,
		AgentData:     json.RawMessage(`{"a":true}`),
	}

	mock.ExpectQuery(`INSERT INTO application_processes \(application_id, .*review_reason\) VALUES \(\$1, .*\$11\) RETURNING id`).
		WithArgs("APP-1", nil, nil, "submitted", nil, nil, today.Time, `{"a":true}`, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	require.NoError(t, NewApplications(db).Insert(context.Background(), app))
	assert.Equal(t, 11, app.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ClaimWritesClaimRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ref := 5
	app := &models.Application{
		ID:            4,
		Track:         models.TrackClaim,
		ApplicationID: "CLM-4",
		Status:        models.StringPtr("approved"),
		ClaimRecordID: &ref,
	}

	mock.ExpectExec(`UPDATE claim_applications SET application_id = \$1, .*claim_record_id = \$12 WHERE id = \$13`).
		WithArgs("CLM-4", nil, nil, "approved", nil, nil, nil, nil, nil, nil, nil, int64(5), 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewApplications(db).Update(context.Background(), app))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE application_processes`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewApplications(db).Update(context.Background(), &models.Application{ID: 1, ApplicationID: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestList_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM application_processes WHERE status = \$1 AND application_type = \$2 ORDER BY id`).
		WithArgs("pending", "life").
		WillReturnRows(sqlmock.NewRows(claimColumns[:12]).
			AddRow(1, "A", "life", nil, "pending", nil, nil, nil, nil, nil, nil, nil).
			AddRow(2, "B", "life", nil, "pending", nil, nil, nil, nil, nil, nil, nil))

	apps, err := NewApplications(db).List(context.Background(), models.TrackPolicy,
		ListFilter{Status: "pending", ApplicationType: "life"})
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "B", apps[1].ApplicationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM claim_applications ORDER BY id`).
		WillReturnRows(sqlmock.NewRows(claimColumns))

	apps, err := NewApplications(db).List(context.Background(), models.TrackClaim, ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)
}

// ==========================
// Claims and documents
// ==========================

func TestClaims_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE claims SET status = \$1 WHERE id = \$2`).
		WithArgs("approved", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE claims`).
		WithArgs("approved", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claims := NewClaims(db)
	assert.NoError(t, claims.UpdateStatus(context.Background(), 3, "approved"))
	assert.ErrorIs(t, claims.UpdateStatus(context.Background(), 99, "approved"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaims_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO claims \(user_id, policy_id, claim_type, amount, status, last_updated\)`).
		WithArgs(int64(7), nil, "Life", 2500.0, "Submitted", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectQuery(`INSERT INTO claims`).
		WillReturnError(errors.New("connection refused"))

	userID, claimType, status := 7, "Life", "Submitted"
	today := models.NewDate(time.Date(2024, 9, 3, 0, 0, 0, 0, time.UTC))
	claim := &models.Claim{UserID: &userID, ClaimType: &claimType, Amount: 2500, Status: &status, LastUpdated: &today}

	claims := NewClaims(db)
	require.NoError(t, claims.Create(context.Background(), claim))
	assert.Equal(t, 41, claim.ID)

	err = claims.Create(context.Background(), &models.Claim{})
	assert.ErrorContains(t, err, "failed to create claim")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocuments_InsertFindDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	doc := &models.Document{
		UserID:       42,
		DocumentType: "claim_document",
		DocumentURL:  "http://localhost:8000/uploads/claims/pending/42/a.pdf",
		UploadDate:   models.NewDate(day),
		FileSize:     128,
	}

	mock.ExpectQuery(`INSERT INTO documents`).
		WithArgs(42, nil, "claim_document", doc.DocumentURL, day, int64(128)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(17))
	mock.ExpectQuery(`FROM documents WHERE id = \$1`).
		WithArgs(17).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "policy_id", "document_type", "document_url", "upload_date", "file_size"}).
			AddRow(17, 42, int64(8), "claim_document", doc.DocumentURL, day, int64(128)))
	mock.ExpectExec(`DELETE FROM documents WHERE id = \$1`).
		WithArgs(17).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocuments(db)
	require.NoError(t, repo.Insert(context.Background(), doc))
	assert.Equal(t, 17, doc.ID)

	found, err := repo.FindByID(context.Background(), 17)
	require.NoError(t, err)
	require.NotNil(t, found.PolicyID)
	assert.Equal(t, 8, *found.PolicyID)
	assert.Equal(t, "2024-05-02", found.UploadDate.String())

	assert.NoError(t, repo.Delete(context.Background(), 17))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocuments_FindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM documents`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewDocuments(db).FindByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}
