package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/filemart/downloads/internal/cache"
	"github.com/filemart/downloads/internal/device"
	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/quota"
	"github.com/filemart/downloads/internal/repository"
)

// GrantService is the authorization orchestrator. Three policy paths
// converge on the token issuer:
//   - unconditional free: price 0 and not featured, no package consumed;
//   - package-gated: featured files, metered against the current package
//     with device trust enforced;
//   - paid: requires a purchase record for (user, file, order).
type GrantService interface {
	// Grant runs the free or package-gated path. A *errs.DeviceTrustRequired
	// error means the caller should confirm the device and retry.
	Grant(ctx context.Context, userID, fileID uuid.UUID, sig model.DeviceSignals) (*model.Grant, error)

	// GrantPaid runs the paid path for a purchased file.
	GrantPaid(ctx context.Context, userID, fileID, orderID uuid.UUID) (*model.Grant, error)
}

type GrantServiceImpl struct {
	files     repository.FileRepository
	packages  repository.PackageRepository
	ledger    repository.LedgerRepository
	devices   repository.DeviceRepository
	purchases repository.PurchaseRepository
	tokens    TokenService
	cache     cache.EntitlementCache
}

// NewGrantService constructs the orchestrator.
func NewGrantService(
	files repository.FileRepository,
	packages repository.PackageRepository,
	ledger repository.LedgerRepository,
	devices repository.DeviceRepository,
	purchases repository.PurchaseRepository,
	tokens TokenService,
	c cache.EntitlementCache,
) *GrantServiceImpl {
	if c == nil {
		c = cache.Noop{}
	}
	return &GrantServiceImpl{
		files:     files,
		packages:  packages,
		ledger:    ledger,
		devices:   devices,
		purchases: purchases,
		tokens:    tokens,
		cache:     c,
	}
}

// Grant authorizes a download on the free or package-gated path.
func (s *GrantServiceImpl) Grant(ctx context.Context, userID, fileID uuid.UUID, sig model.DeviceSignals) (*model.Grant, error) {
	if userID == uuid.Nil || fileID == uuid.Nil {
		return nil, errors.New("validation: empty userID/fileID")
	}
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	// Free and not featured: no package, no quota, no device checks.
	if f.Price == 0 && !f.Featured {
		return s.issue(ctx, userID, fileID, nil, uuid.NullUUID{})
	}
	// Priced and not featured files only move through the paid path.
	if !f.Featured {
		return nil, errs.ErrNotPurchased
	}

	// A live handle for this (user, file) comes back as-is: reuse burns no
	// quota, so it must survive an exhausted ceiling or an unknown device.
	if e, err := s.ledger.FindReusable(ctx, userID, fileID, uuid.NullUUID{}, time.Now()); err == nil {
		return &model.Grant{Handle: e.Handle, ExpiresAt: e.ExpiresAt}, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	p, err := s.currentPackage(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Advisory pre-check; the authoritative check re-runs inside the
	// ledger insert transaction.
	u, err := s.usage(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if err := quota.CheckAdmission(p, u, f.Size); err != nil {
		return nil, err
	}

	fp := device.Fingerprint(sig)
	trusted, err := s.devices.IsTrusted(ctx, p.ID, fp)
	if err != nil {
		return nil, err
	}
	if !trusted {
		n, err := s.devices.Count(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if n >= p.Devices {
			return nil, errs.ErrDeviceLimitExceeded
		}
		// Unknown device with capacity left: no grant yet, the caller
		// must confirm trust explicitly and re-request.
		return nil, &errs.DeviceTrustRequired{
			UsedDevices:    n,
			AllowedDevices: p.Devices,
			Fingerprint:    fp,
		}
	}

	return s.issue(ctx, userID, fileID, p, uuid.NullUUID{})
}

// GrantPaid authorizes a download of a purchased file.
func (s *GrantServiceImpl) GrantPaid(ctx context.Context, userID, fileID, orderID uuid.UUID) (*model.Grant, error) {
	if userID == uuid.Nil || fileID == uuid.Nil || orderID == uuid.Nil {
		return nil, errors.New("validation: empty userID/fileID/orderID")
	}
	if _, err := s.files.GetByID(ctx, fileID); err != nil {
		return nil, err
	}
	ok, err := s.purchases.Exists(ctx, userID, fileID, orderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.ErrNotPurchased
	}
	return s.issue(ctx, userID, fileID, nil, uuid.NullUUID{UUID: orderID, Valid: true})
}

func (s *GrantServiceImpl) issue(
	ctx context.Context, userID, fileID uuid.UUID, pkg *model.Package, orderID uuid.NullUUID,
) (*model.Grant, error) {
	e, err := s.tokens.IssueOrReuse(ctx, userID, fileID, pkg, orderID)
	if err != nil {
		return nil, err
	}
	return &model.Grant{Handle: e.Handle, ExpiresAt: e.ExpiresAt}, nil
}

func (s *GrantServiceImpl) currentPackage(ctx context.Context, userID uuid.UUID) (*model.Package, error) {
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

func (s *GrantServiceImpl) usage(ctx context.Context, packageID uuid.UUID) (model.Usage, error) {
	if u, err := s.cache.GetUsage(ctx, packageID); err == nil && u != nil {
		return *u, nil
	}
	u, err := s.ledger.UsageFor(ctx, packageID, time.Now())
	if err != nil {
		return model.Usage{}, err
	}
	_ = s.cache.SetUsage(ctx, packageID, u)
	return u, nil
}
