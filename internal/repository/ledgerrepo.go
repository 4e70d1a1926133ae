package repository

import (
	"context"
	"time"

	"github.com/filemart/downloads/internal/model"
	"github.com/gofrs/uuid/v5"
)

// LedgerRepository appends and reads granted downloads. Entries are
// append-only; nothing here updates or deletes them.
type LedgerRepository interface {
	// FindReusable returns the newest unexpired entry for
	// (user, file, order), or errs.ErrNotFound. The package instance is
	// deliberately not part of the key: one user/order cannot hold two
	// live grants for the same file.
	FindReusable(ctx context.Context, userID, fileID uuid.UUID, orderID uuid.NullUUID, now time.Time) (*model.LedgerEntry, error)

	// UsageFor aggregates total and today's usage for a package instance.
	UsageFor(ctx context.Context, packageID uuid.UUID, now time.Time) (model.Usage, error)

	// Insert appends an unmetered entry (free or paid path, no package).
	Insert(ctx context.Context, e *model.LedgerEntry) error

	// InsertAdmitted appends a package-metered entry. The admission check
	// against the package limits is re-run inside the same transaction as
	// the insert, with the package row locked, so concurrent grants cannot
	// jointly overshoot a ceiling. Returns a quota sentinel on denial.
	InsertAdmitted(ctx context.Context, e *model.LedgerEntry, p *model.Package) error

	// GetByHandle resolves a handle to its entry, or errs.ErrTokenNotFound.
	GetByHandle(ctx context.Context, handle string) (*model.LedgerEntry, error)
}
