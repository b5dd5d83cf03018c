// Package repository persists applications, master claims and document
// metadata in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"insurance-backoffice/internal/models"
)

var ErrNotFound = errors.New("NOT_FOUND")

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func stringArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func intArg(n *int) interface{} {
	if n == nil {
		return nil
	}
	return int64(*n)
}

func dateArg(d *models.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.Time
}

// jsonArg passes JSONB as text so the driver does not send it as bytea.
func jsonArg(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func datePtr(t sql.NullTime) *models.Date {
	if !t.Valid {
		return nil
	}
	d := models.NewDate(t.Time)
	return &d
}

func rawJSON(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
