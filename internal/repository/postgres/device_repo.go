package postgres

import (
	"context"
	"errors"

	"github.com/filemart/downloads/internal/errs"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// DeviceRepo implements DeviceRepository using PostgreSQL.
type DeviceRepo struct{ db *DB }

// NewDeviceRepo constructs a device repository.
func NewDeviceRepo(db *DB) *DeviceRepo { return &DeviceRepo{db: db} }

// IsTrusted reports allow-list membership for (package, fingerprint).
func (r *DeviceRepo) IsTrusted(ctx context.Context, packageID uuid.UUID, fingerprint string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM package_devices WHERE package_id=$1 AND fingerprint=$2)`
	var ok bool
	if err := r.db.Pool.QueryRow(ctx, q, packageID, fingerprint).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Count returns the number of devices bound to the package.
func (r *DeviceRepo) Count(ctx context.Context, packageID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM package_devices WHERE package_id=$1`
	var n int
	if err := r.db.Pool.QueryRow(ctx, q, packageID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Add binds a device, re-checking the count bound under the package row
// lock so concurrent trust requests cannot jointly exceed the limit.
func (r *DeviceRepo) Add(ctx context.Context, packageID uuid.UUID, fingerprint, ip string, maxDevices int) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const lock = `SELECT id FROM packages WHERE id=$1 AND is_active AND expires_at > now() FOR UPDATE`
	var id uuid.UUID
	if err = tx.QueryRow(ctx, lock, packageID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return err
	}

	const exists = `SELECT EXISTS(SELECT 1 FROM package_devices WHERE package_id=$1 AND fingerprint=$2)`
	var trusted bool
	if err = tx.QueryRow(ctx, exists, packageID, fingerprint).Scan(&trusted); err != nil {
		return err
	}
	if trusted {
		return nil
	}

	const count = `SELECT COUNT(*) FROM package_devices WHERE package_id=$1`
	var n int
	if err = tx.QueryRow(ctx, count, packageID).Scan(&n); err != nil {
		return err
	}
	if n >= maxDevices {
		err = errs.ErrDeviceLimitExceeded
		return err
	}

	const ins = `INSERT INTO package_devices (package_id, fingerprint, ip) VALUES ($1,$2,$3)`
	if _, err = tx.Exec(ctx, ins, packageID, fingerprint, ip); err != nil {
		return err
	}
	return nil
}
