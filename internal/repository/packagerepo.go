// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/filemart/downloads/internal/model"
	"github.com/gofrs/uuid/v5"
)

// PackageRepository stores entitlement instances and maintains the
// exactly-one-current invariant per user.
type PackageRepository interface {
	// Create inserts a new package instance (called by the checkout collaborator).
	Create(ctx context.Context, p *model.Package) error

	// GetByID loads a package instance by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Package, error)

	// ListActive returns the user's unexpired active packages, oldest first.
	// An empty slice is not an error.
	ListActive(ctx context.Context, userID uuid.UUID) ([]model.Package, error)

	// GetCurrent returns the user's current active package. When no package
	// is flagged current but active ones exist, it atomically selects the
	// earliest-created one, flags it and unflags any stale current.
	// Returns errs.ErrNoEntitlement when the user has no active package.
	GetCurrent(ctx context.Context, userID uuid.UUID) (*model.Package, error)

	// SetCurrent atomically makes the given package the user's only current
	// one. Returns errs.ErrNotFound if the package is not owned by the user
	// or is no longer active.
	SetCurrent(ctx context.Context, userID, packageID uuid.UUID) error
}
