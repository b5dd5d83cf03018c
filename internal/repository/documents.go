package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"insurance-backoffice/internal/models"
)

// Documents stores upload metadata. Rows are never updated.
type Documents struct {
	db DBTX
}

func NewDocuments(db DBTX) *Documents {
	return &Documents{db: db}
}

func (r *Documents) Insert(ctx context.Context, doc *models.Document) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO documents (user_id, policy_id, document_type, document_url, upload_date, file_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		doc.UserID,
		intArg(doc.PolicyID),
		doc.DocumentType,
		doc.DocumentURL,
		doc.UploadDate.Time,
		doc.FileSize,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *Documents) FindByID(ctx context.Context, id int) (*models.Document, error) {
	var (
		doc      models.Document
		policyID sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, policy_id, document_type, document_url, upload_date, file_size
		FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.UserID, &policyID, &doc.DocumentType, &doc.DocumentURL, &doc.UploadDate, &doc.FileSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	doc.PolicyID = intPtr(policyID)
	return &doc, nil
}

func (r *Documents) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	return nil
}
