package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// DeviceRepository maintains the bounded per-package device allow-list.
type DeviceRepository interface {
	// IsTrusted reports membership of a fingerprint in the package allow-list.
	IsTrusted(ctx context.Context, packageID uuid.UUID, fingerprint string) (bool, error)

	// Count returns the number of devices bound to the package.
	Count(ctx context.Context, packageID uuid.UUID) (int, error)

	// Add binds a device. Already-trusted fingerprints are a no-op success.
	// The count bound is re-checked inside the same transaction as the
	// append (package row locked); errs.ErrDeviceLimitExceeded on saturation.
	Add(ctx context.Context, packageID uuid.UUID, fingerprint, ip string, maxDevices int) error
}
