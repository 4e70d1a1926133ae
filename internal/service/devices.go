package service

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"

	"github.com/filemart/downloads/internal/device"
	"github.com/filemart/downloads/internal/repository"
)

// DeviceService binds devices to the user's current package.
type DeviceService interface {
	// Trust adds the fingerprint to the current package's allow-list.
	// Returns errs.ErrDeviceLimitExceeded when the bound is saturated and
	// errs.ErrNoEntitlement when the user has no active package.
	Trust(ctx context.Context, userID uuid.UUID, fingerprint, ip string) error
}

type DeviceServiceImpl struct {
	packages repository.PackageRepository
	devices  repository.DeviceRepository
}

// NewDeviceService constructs DeviceService.
func NewDeviceService(packages repository.PackageRepository, devices repository.DeviceRepository) *DeviceServiceImpl {
	return &DeviceServiceImpl{packages: packages, devices: devices}
}

// Trust validates the fingerprint and appends it under the device bound.
func (s *DeviceServiceImpl) Trust(ctx context.Context, userID uuid.UUID, fingerprint, ip string) error {
	if userID == uuid.Nil {
		return errors.New("validation: empty userID")
	}
	fp := device.Normalize(fingerprint)
	if !device.Valid(fp) {
		return errors.New("validation: malformed fingerprint")
	}
	p, err := s.packages.GetCurrent(ctx, userID)
	if err != nil {
		return err
	}
	return s.devices.Add(ctx, p.ID, fp, ip, p.Devices)
}
