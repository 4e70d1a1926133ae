package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// PurchaseRepository reads purchase records produced by checkout.
type PurchaseRepository interface {
	// Exists reports whether a purchase record matches (user, file, order).
	Exists(ctx context.Context, userID, fileID, orderID uuid.UUID) (bool, error)
}
