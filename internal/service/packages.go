// Package service contains application services for the download
// entitlement engine: package selection, device trust, token issuance and
// the grant orchestrator.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/filemart/downloads/internal/cache"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/repository"
)

// PackageService exposes the user-facing package store operations.
type PackageService interface {
	// ListActive returns the user's active packages with current usage.
	ListActive(ctx context.Context, userID uuid.UUID) ([]model.PackageStatus, error)
	// Current returns the user's current package, auto-selecting if needed.
	Current(ctx context.Context, userID uuid.UUID) (*model.Package, error)
	// SetCurrent switches the user's current package.
	SetCurrent(ctx context.Context, userID, packageID uuid.UUID) error
}

type PackageServiceImpl struct {
	packages repository.PackageRepository
	ledger   repository.LedgerRepository
	cache    cache.EntitlementCache
}

// NewPackageService constructs PackageService.
func NewPackageService(
	packages repository.PackageRepository,
	ledger repository.LedgerRepository,
	c cache.EntitlementCache,
) *PackageServiceImpl {
	if c == nil {
		c = cache.Noop{}
	}
	return &PackageServiceImpl{packages: packages, ledger: ledger, cache: c}
}

// ListActive pairs each active package with its ledger usage.
func (s *PackageServiceImpl) ListActive(ctx context.Context, userID uuid.UUID) ([]model.PackageStatus, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	pkgs, err := s.packages.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]model.PackageStatus, 0, len(pkgs))
	for _, p := range pkgs {
		u, err := s.ledger.UsageFor(ctx, p.ID, now)
		if err != nil {
			return nil, err
		}
		out = append(out, model.PackageStatus{Package: p, Usage: u})
	}
	return out, nil
}

// Current resolves the user's current package through the cache. A cached
// entry that has expired in the meantime is treated as a miss.
func (s *PackageServiceImpl) Current(ctx context.Context, userID uuid.UUID) (*model.Package, error) {
	if userID == uuid.Nil {
		return nil, errors.New("validation: empty userID")
	}
	now := time.Now()
	if p, err := s.cache.GetCurrent(ctx, userID); err == nil && p != nil && p.Active(now) && p.IsCurrent {
		return p, nil
	}
	p, err := s.packages.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetCurrent(ctx, userID, *p)
	return p, nil
}

// SetCurrent switches the current package and drops the cached selection.
func (s *PackageServiceImpl) SetCurrent(ctx context.Context, userID, packageID uuid.UUID) error {
	if userID == uuid.Nil || packageID == uuid.Nil {
		return errors.New("validation: empty userID/packageID")
	}
	if err := s.packages.SetCurrent(ctx, userID, packageID); err != nil {
		return err
	}
	_ = s.cache.InvalidateCurrent(ctx, userID)
	return nil
}
