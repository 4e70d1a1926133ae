package postgres

import (
	"context"
	"errors"

	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// FileRepo implements FileRepository using PostgreSQL.
type FileRepo struct{ db *DB }

// NewFileRepo constructs a file repository.
func NewFileRepo(db *DB) *FileRepo { return &FileRepo{db: db} }

// GetByID selects a catalog file by ID.
func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.File, error) {
	const q = `
SELECT id, size_bytes, price, is_featured, url, downloads
FROM files WHERE id=$1`
	var f model.File
	err := r.db.Pool.QueryRow(ctx, q, id).Scan(
		&f.ID, &f.Size, &f.Price, &f.Featured, &f.URL, &f.Downloads,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrFileNotFound
		}
		return nil, err
	}
	return &f, nil
}

// IncrementDownloads bumps the download counter by one.
func (r *FileRepo) IncrementDownloads(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE files SET downloads = downloads + 1 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id)
	return err
}
