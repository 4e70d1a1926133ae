package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/quota"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements LedgerRepository using PostgreSQL.
type LedgerRepo struct{ db *DB }

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

const ledgerCols = `id, user_id, file_id, package_id, order_id, file_size, handle, created_at, expires_at`

func scanEntry(row pgx.Row) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := row.Scan(
		&e.ID, &e.UserID, &e.FileID, &e.PackageID, &e.OrderID,
		&e.FileSize, &e.Handle, &e.CreatedAt, &e.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// FindReusable returns the newest unexpired entry for (user, file, order).
func (r *LedgerRepo) FindReusable(
	ctx context.Context, userID, fileID uuid.UUID, orderID uuid.NullUUID, now time.Time,
) (*model.LedgerEntry, error) {
	const q = `
SELECT ` + ledgerCols + `
FROM download_ledger
WHERE user_id=$1 AND file_id=$2 AND order_id IS NOT DISTINCT FROM $3 AND expires_at > $4
ORDER BY created_at DESC
LIMIT 1`
	e, err := scanEntry(r.db.Pool.QueryRow(ctx, q, userID, fileID, orderID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return e, err
}

// usageQuery aggregates lifetime and today's ledger usage for one package.
// $2 is the UTC day boundary supplied by the caller.
const usageQuery = `
SELECT
  COALESCE(SUM(file_size), 0),
  COALESCE(SUM(file_size) FILTER (WHERE created_at >= $2), 0),
  COUNT(*) FILTER (WHERE created_at >= $2)
FROM download_ledger
WHERE package_id=$1`

// UsageFor aggregates total and today's usage for a package instance.
func (r *LedgerRepo) UsageFor(ctx context.Context, packageID uuid.UUID, now time.Time) (model.Usage, error) {
	var u model.Usage
	row := r.db.Pool.QueryRow(ctx, usageQuery, packageID, quota.DayStart(now))
	if err := row.Scan(&u.TotalBytes, &u.TodayBytes, &u.TodayFiles); err != nil {
		return model.Usage{}, err
	}
	return u, nil
}

const insertEntry = `
INSERT INTO download_ledger (id, user_id, file_id, package_id, order_id, file_size, handle, created_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

// Insert appends an unmetered entry.
func (r *LedgerRepo) Insert(ctx context.Context, e *model.LedgerEntry) error {
	_, err := r.db.Pool.Exec(ctx, insertEntry,
		e.ID, e.UserID, e.FileID, e.PackageID, e.OrderID,
		e.FileSize, e.Handle, e.CreatedAt, e.ExpiresAt,
	)
	return err
}

// InsertAdmitted re-runs the admission check and appends the entry as one
// serialized unit: the package row is locked for the duration, so two
// concurrent grants near a ceiling cannot both pass and jointly overshoot.
func (r *LedgerRepo) InsertAdmitted(ctx context.Context, e *model.LedgerEntry, p *model.Package) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	// The activity predicate re-runs under the lock: a package that expired
	// or was deactivated after the caller resolved it admits nothing.
	const lock = `SELECT id FROM packages WHERE id=$1 AND is_active AND expires_at > now() FOR UPDATE`
	var id uuid.UUID
	if err = tx.QueryRow(ctx, lock, p.ID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNoEntitlement
		}
		return err
	}

	var u model.Usage
	row := tx.QueryRow(ctx, usageQuery, p.ID, quota.DayStart(e.CreatedAt))
	if err = row.Scan(&u.TotalBytes, &u.TodayBytes, &u.TodayFiles); err != nil {
		return err
	}
	if err = quota.CheckAdmission(p, u, e.FileSize); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, insertEntry,
		e.ID, e.UserID, e.FileID, e.PackageID, e.OrderID,
		e.FileSize, e.Handle, e.CreatedAt, e.ExpiresAt,
	)
	return err
}

// GetByHandle resolves a handle to its ledger entry.
func (r *LedgerRepo) GetByHandle(ctx context.Context, handle string) (*model.LedgerEntry, error) {
	const q = `SELECT ` + ledgerCols + ` FROM download_ledger WHERE handle=$1`
	e, err := scanEntry(r.db.Pool.QueryRow(ctx, q, handle))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrTokenNotFound
	}
	return e, err
}
