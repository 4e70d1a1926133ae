package postgres

import (
	"context"
	"errors"

	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// PackageRepo implements PackageRepository using PostgreSQL.
type PackageRepo struct{ db *DB }

// NewPackageRepo constructs a package repository.
func NewPackageRepo(db *DB) *PackageRepo { return &PackageRepo{db: db} }

const packageCols = `id, user_id, catalog_id, bandwidth, fair, fair_files, devices, is_current, is_active, created_at, expires_at`

func scanPackage(row pgx.Row) (*model.Package, error) {
	var p model.Package
	err := row.Scan(
		&p.ID, &p.UserID, &p.CatalogID,
		&p.Bandwidth, &p.Fair, &p.FairFiles, &p.Devices,
		&p.IsCurrent, &p.IsActive, &p.CreatedAt, &p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new package instance row.
func (r *PackageRepo) Create(ctx context.Context, p *model.Package) error {
	const q = `
INSERT INTO packages (id, user_id, catalog_id, bandwidth, fair, fair_files, devices, is_current, is_active, created_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.db.Pool.Exec(ctx, q,
		p.ID, p.UserID, p.CatalogID,
		p.Bandwidth, p.Fair, p.FairFiles, p.Devices,
		p.IsCurrent, p.IsActive, p.CreatedAt, p.ExpiresAt,
	)
	return err
}

// GetByID selects a package instance by ID.
func (r *PackageRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Package, error) {
	const q = `SELECT ` + packageCols + ` FROM packages WHERE id=$1`
	p, err := scanPackage(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return p, err
}

// ListActive returns unexpired active packages for the user, oldest first.
func (r *PackageRepo) ListActive(ctx context.Context, userID uuid.UUID) ([]model.Package, error) {
	const q = `
SELECT ` + packageCols + `
FROM packages
WHERE user_id=$1 AND is_active AND expires_at > now()
ORDER BY created_at ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetCurrent returns the current active package, auto-selecting the
// earliest-created active one when none is flagged. Selection and flag
// flips happen in one transaction with the candidate row locked.
func (r *PackageRepo) GetCurrent(ctx context.Context, userID uuid.UUID) (p *model.Package, err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finishTx(ctx, tx, &err)

	// is_current DESC ranks an already-flagged package first; otherwise
	// the earliest-created active one becomes the deterministic choice.
	const sel = `
SELECT ` + packageCols + `
FROM packages
WHERE user_id=$1 AND is_active AND expires_at > now()
ORDER BY is_current DESC, created_at ASC
LIMIT 1
FOR UPDATE`
	p, err = scanPackage(tx.QueryRow(ctx, sel, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		err = errs.ErrNoEntitlement
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if p.IsCurrent {
		return p, nil
	}

	const unset = `UPDATE packages SET is_current=false WHERE user_id=$1 AND is_current`
	if _, err = tx.Exec(ctx, unset, userID); err != nil {
		return nil, err
	}
	const set = `UPDATE packages SET is_current=true WHERE id=$1`
	if _, err = tx.Exec(ctx, set, p.ID); err != nil {
		return nil, err
	}
	p.IsCurrent = true
	return p, nil
}

// SetCurrent validates ownership and activity, then flips the current flag
// to the target package in one transaction.
func (r *PackageRepo) SetCurrent(ctx context.Context, userID, packageID uuid.UUID) (err error) {
	tx, err := r.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer finishTx(ctx, tx, &err)

	const sel = `
SELECT id FROM packages
WHERE id=$1 AND user_id=$2 AND is_active AND expires_at > now()
FOR UPDATE`
	var id uuid.UUID
	if err = tx.QueryRow(ctx, sel, packageID, userID).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrNotFound
		}
		return err
	}

	const unset = `UPDATE packages SET is_current=false WHERE user_id=$1 AND is_current AND id<>$2`
	if _, err = tx.Exec(ctx, unset, userID, packageID); err != nil {
		return err
	}
	const set = `UPDATE packages SET is_current=true WHERE id=$1`
	if _, err = tx.Exec(ctx, set, packageID); err != nil {
		return err
	}
	return nil
}
