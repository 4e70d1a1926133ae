// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Package is a purchased entitlement instance owned by one user.
// Limits are copied from the catalog template at purchase time; the engine
// only flips is_current and appends device trust, never edits limits.
type Package struct {
	ID        uuid.UUID // instance PK
	UserID    uuid.UUID // owning user
	CatalogID uuid.UUID // catalog template this instance was minted from
	Bandwidth int64     // total byte ceiling over the package lifetime
	Fair      int64     // daily byte ceiling (fair usage)
	FairFiles int       // daily file count ceiling
	Devices   int       // max bound devices
	IsCurrent bool      // the single active quota pool for the user
	IsActive  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Active reports whether the package can still admit downloads at t.
func (p *Package) Active(t time.Time) bool {
	return p.IsActive && p.ExpiresAt.After(t)
}

// File is a downloadable catalog item. Owned by the file-management
// collaborator; this engine reads it and increments the download counter.
type File struct {
	ID        uuid.UUID
	Size      int64 // bytes
	Price     int64 // minor currency units, 0 = free
	Featured  bool  // featured files are package-gated
	URL       string
	Downloads int64
}

// LedgerEntry is one granted download. Append-only: entries are never
// updated or deleted; they are the sole source of truth for usage.
type LedgerEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FileID    uuid.UUID
	PackageID uuid.NullUUID // null for free/paid-without-package grants
	OrderID   uuid.NullUUID // null unless granted through the paid path
	FileSize  int64         // snapshot of the file size at grant time
	Handle    string        // opaque download handle
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry's handle is no longer redeemable at t.
func (e *LedgerEntry) Expired(t time.Time) bool {
	return !t.Before(e.ExpiresAt)
}

// Usage is the ledger aggregate for one package instance.
// "Today" is the current UTC calendar day.
type Usage struct {
	TotalBytes int64
	TodayBytes int64
	TodayFiles int
}

// Device is one trusted device bound to a package instance.
type Device struct {
	PackageID   uuid.UUID
	Fingerprint string
	IP          string
	CreatedAt   time.Time
}

// Purchase proves a paid file was bought. Produced by checkout, read-only here.
type Purchase struct {
	UserID    uuid.UUID
	FileID    uuid.UUID
	OrderID   uuid.UUID
	CreatedAt time.Time
}

// DeviceSignals are the client attributes a fingerprint is derived from.
type DeviceSignals struct {
	UserAgent      string
	AcceptLanguage string
	IP             string
}

// Grant is a successful authorization: an issued (or reused) handle.
type Grant struct {
	Handle    string
	ExpiresAt time.Time
}

// PackageStatus pairs a package with its current ledger usage.
type PackageStatus struct {
	Package Package
	Usage   Usage
}
