package service

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/filemart/downloads/internal/cache"
	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/repository"
)

type fakeFileRepo struct {
	files       map[uuid.UUID]*model.File
	getErr      error
	incremented []uuid.UUID
	incErr      error
}

var _ repository.FileRepository = (*fakeFileRepo)(nil)

func (f *fakeFileRepo) GetByID(_ context.Context, id uuid.UUID) (*model.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	file, ok := f.files[id]
	if !ok {
		return nil, errs.ErrFileNotFound
	}
	cp := *file
	return &cp, nil
}

func (f *fakeFileRepo) IncrementDownloads(_ context.Context, id uuid.UUID) error {
	f.incremented = append(f.incremented, id)
	return f.incErr
}

type fakePackageRepo struct {
	current     *model.Package
	currentErr  error
	currentHits int

	listOut []model.Package
	listErr error

	setUser uuid.UUID
	setPkg  uuid.UUID
	setErr  error

	created []*model.Package
}

var _ repository.PackageRepository = (*fakePackageRepo)(nil)

func (f *fakePackageRepo) Create(_ context.Context, p *model.Package) error {
	f.created = append(f.created, p)
	return nil
}

func (f *fakePackageRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Package, error) {
	if f.current != nil && f.current.ID == id {
		cp := *f.current
		return &cp, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakePackageRepo) ListActive(_ context.Context, _ uuid.UUID) ([]model.Package, error) {
	return append([]model.Package(nil), f.listOut...), f.listErr
}

func (f *fakePackageRepo) GetCurrent(_ context.Context, _ uuid.UUID) (*model.Package, error) {
	f.currentHits++
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.current == nil {
		return nil, errs.ErrNoEntitlement
	}
	cp := *f.current
	cp.IsCurrent = true
	return &cp, nil
}

func (f *fakePackageRepo) SetCurrent(_ context.Context, userID, packageID uuid.UUID) error {
	f.setUser, f.setPkg = userID, packageID
	return f.setErr
}

type fakeLedgerRepo struct {
	reusable    *model.LedgerEntry
	reusableErr error

	usage    model.Usage
	usageErr error

	inserted         []*model.LedgerEntry
	insertErr        error
	insertedAdmitted []*model.LedgerEntry
	admitErr         error

	byHandle map[string]*model.LedgerEntry
}

var _ repository.LedgerRepository = (*fakeLedgerRepo)(nil)

func (f *fakeLedgerRepo) FindReusable(
	_ context.Context, _, _ uuid.UUID, _ uuid.NullUUID, _ time.Time,
) (*model.LedgerEntry, error) {
	if f.reusableErr != nil {
		return nil, f.reusableErr
	}
	if f.reusable == nil {
		return nil, errs.ErrNotFound
	}
	cp := *f.reusable
	return &cp, nil
}

func (f *fakeLedgerRepo) UsageFor(_ context.Context, _ uuid.UUID, _ time.Time) (model.Usage, error) {
	return f.usage, f.usageErr
}

func (f *fakeLedgerRepo) Insert(_ context.Context, e *model.LedgerEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, e)
	return nil
}

func (f *fakeLedgerRepo) InsertAdmitted(_ context.Context, e *model.LedgerEntry, _ *model.Package) error {
	if f.admitErr != nil {
		return f.admitErr
	}
	f.insertedAdmitted = append(f.insertedAdmitted, e)
	return nil
}

func (f *fakeLedgerRepo) GetByHandle(_ context.Context, handle string) (*model.LedgerEntry, error) {
	e, ok := f.byHandle[handle]
	if !ok {
		return nil, errs.ErrTokenNotFound
	}
	cp := *e
	return &cp, nil
}

type fakeDeviceRepo struct {
	trusted map[string]bool
	count   int

	added  []string
	addErr error
}

var _ repository.DeviceRepository = (*fakeDeviceRepo)(nil)

func (f *fakeDeviceRepo) IsTrusted(_ context.Context, _ uuid.UUID, fingerprint string) (bool, error) {
	return f.trusted[fingerprint], nil
}

func (f *fakeDeviceRepo) Count(_ context.Context, _ uuid.UUID) (int, error) {
	return f.count, nil
}

func (f *fakeDeviceRepo) Add(_ context.Context, _ uuid.UUID, fingerprint, _ string, maxDevices int) error {
	if f.addErr != nil {
		return f.addErr
	}
	if f.trusted[fingerprint] {
		return nil
	}
	if f.count >= maxDevices {
		return errs.ErrDeviceLimitExceeded
	}
	f.added = append(f.added, fingerprint)
	f.count++
	return nil
}

type fakePurchaseRepo struct {
	ok  bool
	err error
}

var _ repository.PurchaseRepository = (*fakePurchaseRepo)(nil)

func (f *fakePurchaseRepo) Exists(_ context.Context, _, _, _ uuid.UUID) (bool, error) {
	return f.ok, f.err
}

// recordingCache tracks cache traffic for invalidation assertions.
type recordingCache struct {
	usage   map[uuid.UUID]*model.Usage
	current map[uuid.UUID]*model.Package

	usageInvalidated   []uuid.UUID
	currentInvalidated []uuid.UUID
}

var _ cache.EntitlementCache = (*recordingCache)(nil)

func newRecordingCache() *recordingCache {
	return &recordingCache{
		usage:   make(map[uuid.UUID]*model.Usage),
		current: make(map[uuid.UUID]*model.Package),
	}
}

func (c *recordingCache) GetUsage(_ context.Context, packageID uuid.UUID) (*model.Usage, error) {
	return c.usage[packageID], nil
}

func (c *recordingCache) SetUsage(_ context.Context, packageID uuid.UUID, u model.Usage) error {
	c.usage[packageID] = &u
	return nil
}

func (c *recordingCache) InvalidateUsage(_ context.Context, packageID uuid.UUID) error {
	delete(c.usage, packageID)
	c.usageInvalidated = append(c.usageInvalidated, packageID)
	return nil
}

func (c *recordingCache) GetCurrent(_ context.Context, userID uuid.UUID) (*model.Package, error) {
	return c.current[userID], nil
}

func (c *recordingCache) SetCurrent(_ context.Context, userID uuid.UUID, p model.Package) error {
	c.current[userID] = &p
	return nil
}

func (c *recordingCache) InvalidateCurrent(_ context.Context, userID uuid.UUID) error {
	delete(c.current, userID)
	c.currentInvalidated = append(c.currentInvalidated, userID)
	return nil
}
