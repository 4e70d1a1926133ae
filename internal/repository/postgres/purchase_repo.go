package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// PurchaseRepo implements PurchaseRepository using PostgreSQL.
type PurchaseRepo struct{ db *DB }

// NewPurchaseRepo constructs a purchase repository.
func NewPurchaseRepo(db *DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// Exists reports whether a purchase record matches (user, file, order).
func (r *PurchaseRepo) Exists(ctx context.Context, userID, fileID, orderID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id=$1 AND file_id=$2 AND order_id=$3)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, userID, fileID, orderID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
