package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"insurance-backoffice/internal/models"
)

var applicationFields = []string{
	"application_id", "application_type", "customer_id", "status", "current_step",
	"start_time", "last_updated", "agent_data", "step_history", "audit_trail", "review_reason",
}

// Applications reads and writes both application tables. The track picks the
// table; only the claim table has claim_record_id.
type Applications struct {
	db DBTX
}

func NewApplications(db DBTX) *Applications {
	return &Applications{db: db}
}

func tableFor(track models.Track) string {
	if track == models.TrackClaim {
		return "claim_applications"
	}
	return "application_processes"
}

// fieldsFor lists the writable columns in writeArgs order.
func fieldsFor(track models.Track) []string {
	fields := append([]string{}, applicationFields...)
	if track == models.TrackClaim {
		fields = append(fields, "claim_record_id")
	}
	return fields
}

func selectColumns(track models.Track) string {
	return "id, " + strings.Join(fieldsFor(track), ", ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner, track models.Track) (*models.Application, error) {
	var (
		app                                     models.Application
		appType, customer, status, step, reason sql.NullString
		start, updated                          sql.NullTime
		agentData, stepHistory, auditTrail      []byte
		claimRef                                sql.NullInt64
	)

	dest := []interface{}{
		&app.ID, &app.ApplicationID, &appType, &customer, &status, &step,
		&start, &updated, &agentData, &stepHistory, &auditTrail, &reason,
	}
	if track == models.TrackClaim {
		dest = append(dest, &claimRef)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	app.Track = track
	app.ApplicationType = stringPtr(appType)
	app.CustomerID = stringPtr(customer)
	app.Status = stringPtr(status)
	app.CurrentStep = stringPtr(step)
	app.StartTime = datePtr(start)
	app.LastUpdated = datePtr(updated)
	app.AgentData = rawJSON(agentData)
	app.StepHistory = rawJSON(stepHistory)
	app.AuditTrail = rawJSON(auditTrail)
	app.ReviewReason = stringPtr(reason)
	app.ClaimRecordID = intPtr(claimRef)
	return &app, nil
}

// FindByApplicationID returns ErrNotFound when no row has the external id.
func (r *Applications) FindByApplicationID(ctx context.Context, track models.Track, applicationID string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE application_id = $1`, selectColumns(track), tableFor(track))

	app, err := scanApplication(r.db.QueryRowContext(ctx, query, applicationID), track)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s application %s", ErrNotFound, track, applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s application: %w", track, err)
	}
	return app, nil
}

// Locate checks the policy table first, then the claim table.
func (r *Applications) Locate(ctx context.Context, applicationID string) (*models.Application, error) {
	for _, track := range []models.Track{models.TrackPolicy, models.TrackClaim} {
		app, err := r.FindByApplicationID(ctx, track, applicationID)
		if err == nil {
			return app, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: application %s", ErrNotFound, applicationID)
}

func writeArgs(app *models.Application) []interface{} {
	args := []interface{}{
		app.ApplicationID,
		stringArg(app.ApplicationType),
		stringArg(app.CustomerID),
		stringArg(app.Status),
		stringArg(app.CurrentStep),
		dateArg(app.StartTime),
		dateArg(app.LastUpdated),
		jsonArg(app.AgentData),
		jsonArg(app.StepHistory),
		jsonArg(app.AuditTrail),
		stringArg(app.ReviewReason),
	}
	if app.Track == models.TrackClaim {
		args = append(args, intArg(app.ClaimRecordID))
	}
	return args
}

// Insert creates the row and stores the generated id on app.
func (r *Applications) Insert(ctx context.Context, app *models.Application) error {
	cols := strings.Join(fieldsFor(app.Track), ", ")
	args := writeArgs(app)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		tableFor(app.Track), cols, strings.Join(placeholders, ", "))

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&app.ID); err != nil {
		return fmt.Errorf("failed to insert %s application: %w", app.Track, err)
	}
	return nil
}

// Update rewrites every column of the row identified by app.ID.
func (r *Applications) Update(ctx context.Context, app *models.Application) error {
	cols := fieldsFor(app.Track)
	args := writeArgs(app)

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	args = append(args, app.ID)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		tableFor(app.Track), strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s application: %w", app.Track, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s application id %d", ErrNotFound, app.Track, app.ID)
	}
	return nil
}

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	Status          string
	ApplicationType string
}

// List returns the rows of one table ordered by id.
func (r *Applications) List(ctx context.Context, track models.Track, filter ListFilter) ([]*models.Application, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ApplicationType != "" {
		args = append(args, filter.ApplicationType)
		where = append(where, fmt.Sprintf("application_type = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, selectColumns(track), tableFor(track))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s applications: %w", track, err)
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows, track)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s application: %w", track, err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s applications: %w", track, err)
	}
	return apps, nil
}
