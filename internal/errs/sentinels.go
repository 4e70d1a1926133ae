// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Denials are client-facing and non-retriable without caller action
// (trust a device, switch or renew a package, purchase the file).
var (
	// ErrNoEntitlement indicates the user has no active package to download against.
	ErrNoEntitlement = errors.New("no entitlement")

	// ErrBandwidthExceeded indicates the package lifetime byte ceiling would be crossed.
	ErrBandwidthExceeded = errors.New("bandwidth exceeded")

	// ErrDailyBandwidthExceeded indicates the daily fair-usage byte ceiling would be crossed.
	ErrDailyBandwidthExceeded = errors.New("daily bandwidth exceeded")

	// ErrDailyFileLimitExceeded indicates the daily fair-usage file count would be crossed.
	ErrDailyFileLimitExceeded = errors.New("daily file limit exceeded")

	// ErrDeviceLimitExceeded indicates the package device bound is saturated.
	ErrDeviceLimitExceeded = errors.New("device limit exceeded")

	// ErrNotPurchased indicates no purchase record matches (user, file, order).
	ErrNotPurchased = errors.New("not purchased")

	// ErrFileNotFound indicates the requested file does not exist in the catalog.
	ErrFileNotFound = errors.New("file not found")

	// ErrNotFound indicates the requested entity does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrTokenNotFound indicates no ledger entry matches the presented handle.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired indicates the handle's ledger entry has passed its expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenOwnerMismatch indicates the handle belongs to a different user.
	ErrTokenOwnerMismatch = errors.New("token owner mismatch")
)

// DeviceTrustRequired is a soft denial: the device is unknown but capacity
// remains, so the caller may confirm trust and retry the grant.
type DeviceTrustRequired struct {
	UsedDevices    int
	AllowedDevices int
	Fingerprint    string
}

func (e *DeviceTrustRequired) Error() string {
	return fmt.Sprintf("device trust required (%d/%d devices bound)", e.UsedDevices, e.AllowedDevices)
}
