package repository

import (
	"context"

	"github.com/filemart/downloads/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FileRepository reads catalog files. The catalog is owned elsewhere; this
// engine only loads metadata and bumps the download counter.
type FileRepository interface {
	// GetByID loads a file, or errs.ErrFileNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.File, error)

	// IncrementDownloads bumps the download counter by one.
	IncrementDownloads(ctx context.Context, id uuid.UUID) error
}
