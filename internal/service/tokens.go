package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/filemart/downloads/internal/cache"
	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/repository"
	"github.com/filemart/downloads/internal/token"
)

// DefaultHandleTTL is how long an issued handle stays redeemable.
const DefaultHandleTTL = 24 * time.Hour

// TokenService issues, reuses and redeems download handles.
type TokenService interface {
	// IssueOrReuse returns the live ledger entry for (user, file, order),
	// minting a new one only when no unexpired entry exists. Repeated
	// calls before expiry return the same handle and never double-count
	// quota. A non-nil pkg meters the new entry against that package.
	IssueOrReuse(ctx context.Context, userID, fileID uuid.UUID, pkg *model.Package, orderID uuid.NullUUID) (*model.LedgerEntry, error)

	// Redeem exchanges a handle for the file, enforcing expiry and
	// ownership. Redemption is repeatable until the handle expires.
	Redeem(ctx context.Context, handle string, userID uuid.UUID) (*model.File, error)
}

type TokenServiceImpl struct {
	ledger repository.LedgerRepository
	files  repository.FileRepository
	cache  cache.EntitlementCache
	ttl    time.Duration
}

// NewTokenService constructs TokenService with the given handle TTL.
func NewTokenService(
	ledger repository.LedgerRepository,
	files repository.FileRepository,
	c cache.EntitlementCache,
	ttl time.Duration,
) *TokenServiceImpl {
	if ttl <= 0 {
		ttl = DefaultHandleTTL
	}
	if c == nil {
		c = cache.Noop{}
	}
	return &TokenServiceImpl{ledger: ledger, files: files, cache: c, ttl: ttl}
}

// IssueOrReuse implements the idempotent grant write.
func (s *TokenServiceImpl) IssueOrReuse(
	ctx context.Context, userID, fileID uuid.UUID, pkg *model.Package, orderID uuid.NullUUID,
) (*model.LedgerEntry, error) {
	if userID == uuid.Nil || fileID == uuid.Nil {
		return nil, errors.New("validation: empty userID/fileID")
	}
	now := time.Now()

	e, err := s.ledger.FindReusable(ctx, userID, fileID, orderID, now)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	h, err := token.NewHandle()
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	e = &model.LedgerEntry{
		ID:        id,
		UserID:    userID,
		FileID:    fileID,
		OrderID:   orderID,
		FileSize:  f.Size, // size snapshot at grant time
		Handle:    h,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if pkg != nil {
		e.PackageID = uuid.NullUUID{UUID: pkg.ID, Valid: true}
		if err := s.ledger.InsertAdmitted(ctx, e, pkg); err != nil {
			return nil, err
		}
		_ = s.cache.InvalidateUsage(ctx, pkg.ID)
	} else {
		if err := s.ledger.Insert(ctx, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Redeem resolves a handle to its file and bumps the download counter
// best-effort; a failed increment never fails the redemption.
func (s *TokenServiceImpl) Redeem(ctx context.Context, handle string, userID uuid.UUID) (*model.File, error) {
	if handle == "" || userID == uuid.Nil {
		return nil, errors.New("validation: empty handle/userID")
	}
	e, err := s.ledger.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if e.Expired(time.Now()) {
		return nil, errs.ErrTokenExpired
	}
	if e.UserID != userID {
		return nil, errs.ErrTokenOwnerMismatch
	}
	f, err := s.files.GetByID(ctx, e.FileID)
	if err != nil {
		return nil, err
	}
	_ = s.files.IncrementDownloads(ctx, e.FileID)
	return f, nil
}
