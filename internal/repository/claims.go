package repository

import (
	"context"
	"fmt"

	"insurance-backoffice/internal/models"
)

// Claims manages the master claim records.
type Claims struct {
	db DBTX
}

func NewClaims(db DBTX) *Claims {
	return &Claims{db: db}
}

// Create inserts the claim and stores the generated id on claim.
func (r *Claims) Create(ctx context.Context, claim *models.Claim) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO claims (user_id, policy_id, claim_type, amount, status, last_updated) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		intArg(claim.UserID),
		intArg(claim.PolicyID),
		stringArg(claim.ClaimType),
		claim.Amount,
		stringArg(claim.Status),
		dateArg(claim.LastUpdated),
	).Scan(&claim.ID)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

// UpdateStatus copies an application status onto the master claim.
func (r *Claims) UpdateStatus(ctx context.Context, claimID int, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE claims SET status = $1 WHERE id = $2`, status, claimID)
	if err != nil {
		return fmt.Errorf("failed to update claim %d: %w", claimID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: claim %d", ErrNotFound, claimID)
	}
	return nil
}
