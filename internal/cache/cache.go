// Package cache provides an explicit, invalidatable cache for hot
// entitlement lookups (usage snapshots and current-package selection).
// Callers treat it as best-effort: a miss or a cache failure falls through
// to storage, and every ledger or trust write invalidates the affected keys.
package cache

import (
	"context"

	"github.com/filemart/downloads/internal/model"
	"github.com/gofrs/uuid/v5"
)

// EntitlementCache caches per-package usage and per-user current-package
// lookups. Get returns (nil, nil) on a miss.
type EntitlementCache interface {
	GetUsage(ctx context.Context, packageID uuid.UUID) (*model.Usage, error)
	SetUsage(ctx context.Context, packageID uuid.UUID, u model.Usage) error
	InvalidateUsage(ctx context.Context, packageID uuid.UUID) error

	GetCurrent(ctx context.Context, userID uuid.UUID) (*model.Package, error)
	SetCurrent(ctx context.Context, userID uuid.UUID, p model.Package) error
	InvalidateCurrent(ctx context.Context, userID uuid.UUID) error
}

// Noop satisfies EntitlementCache without caching anything. Used when no
// redis is configured and in service tests.
type Noop struct{}

// GetUsage always misses.
func (Noop) GetUsage(context.Context, uuid.UUID) (*model.Usage, error) { return nil, nil }

// SetUsage is a no-op.
func (Noop) SetUsage(context.Context, uuid.UUID, model.Usage) error { return nil }

// InvalidateUsage is a no-op.
func (Noop) InvalidateUsage(context.Context, uuid.UUID) error { return nil }

// GetCurrent always misses.
func (Noop) GetCurrent(context.Context, uuid.UUID) (*model.Package, error) { return nil, nil }

// SetCurrent is a no-op.
func (Noop) SetCurrent(context.Context, uuid.UUID, model.Package) error { return nil }

// InvalidateCurrent is a no-op.
func (Noop) InvalidateCurrent(context.Context, uuid.UUID) error { return nil }
