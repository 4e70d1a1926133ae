package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/quota"
)

var ledgerColNames = []string{
	"id", "user_id", "file_id", "package_id", "order_id",
	"file_size", "handle", "created_at", "expires_at",
}

func entryRow(e *model.LedgerEntry) *pgxmock.Rows {
	return pgxmock.NewRows(ledgerColNames).AddRow(
		e.ID, e.UserID, e.FileID, e.PackageID, e.OrderID,
		e.FileSize, e.Handle, e.CreatedAt, e.ExpiresAt,
	)
}

func someEntry(pkgID uuid.NullUUID) *model.LedgerEntry {
	now := time.Now()
	return &model.LedgerEntry{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    uuid.Must(uuid.NewV4()),
		FileID:    uuid.Must(uuid.NewV4()),
		PackageID: pkgID,
		FileSize:  400,
		Handle:    "deadbeef",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestLedgerRepo_FindReusable_Hit(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	e := someEntry(uuid.NullUUID{})
	now := time.Now()

	mock.ExpectQuery(`WHERE user_id=\$1 AND file_id=\$2 AND order_id IS NOT DISTINCT FROM \$3 AND expires_at > \$4`).
		WithArgs(e.UserID, e.FileID, e.OrderID, now).
		WillReturnRows(entryRow(e))

	got, err := r.FindReusable(context.Background(), e.UserID, e.FileID, e.OrderID, now)
	require.NoError(t, err)
	require.Equal(t, e.Handle, got.Handle)
}

func TestLedgerRepo_FindReusable_Miss(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	e := someEntry(uuid.NullUUID{})
	now := time.Now()

	mock.ExpectQuery(`WHERE user_id=\$1 AND file_id=\$2 AND order_id IS NOT DISTINCT FROM \$3 AND expires_at > \$4`).
		WithArgs(e.UserID, e.FileID, e.OrderID, now).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.FindReusable(context.Background(), e.UserID, e.FileID, e.OrderID, now)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLedgerRepo_UsageFor(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	pkgID := uuid.Must(uuid.NewV4())
	now := time.Now()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(file_size\), 0\),`).
		WithArgs(pkgID, quota.DayStart(now)).
		WillReturnRows(pgxmock.NewRows([]string{"total", "today", "count"}).
			AddRow(int64(900), int64(400), 1))

	u, err := r.UsageFor(context.Background(), pkgID, now)
	require.NoError(t, err)
	require.Equal(t, model.Usage{TotalBytes: 900, TodayBytes: 400, TodayFiles: 1}, u)
}

func meteredPackage() *model.Package {
	return &model.Package{
		ID:        uuid.Must(uuid.NewV4()),
		Bandwidth: 1000,
		Fair:      1000,
		FairFiles: 2,
		Devices:   1,
		IsActive:  true,
	}
}

func TestLedgerRepo_InsertAdmitted_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	p := meteredPackage()
	e := someEntry(uuid.NullUUID{UUID: p.ID, Valid: true})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM packages WHERE id=\$1 AND is_active AND expires_at > now\(\) FOR UPDATE`).
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(p.ID))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(file_size\), 0\),`).
		WithArgs(p.ID, quota.DayStart(e.CreatedAt)).
		WillReturnRows(pgxmock.NewRows([]string{"total", "today", "count"}).
			AddRow(int64(0), int64(0), 0))
	mock.ExpectExec(`INSERT INTO download_ledger`).
		WithArgs(e.ID, e.UserID, e.FileID, e.PackageID, e.OrderID,
			e.FileSize, e.Handle, e.CreatedAt, e.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, r.InsertAdmitted(context.Background(), e, p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_InsertAdmitted_BandwidthDenied(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	p := meteredPackage()
	e := someEntry(uuid.NullUUID{UUID: p.ID, Valid: true})
	e.FileSize = 700

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM packages WHERE id=\$1 AND is_active AND expires_at > now\(\) FOR UPDATE`).
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(p.ID))
	// A concurrent grant landed first: 400 bytes already burned, 400+700 > 1000.
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(file_size\), 0\),`).
		WithArgs(p.ID, quota.DayStart(e.CreatedAt)).
		WillReturnRows(pgxmock.NewRows([]string{"total", "today", "count"}).
			AddRow(int64(400), int64(400), 1))
	mock.ExpectRollback()

	err := r.InsertAdmitted(context.Background(), e, p)
	require.ErrorIs(t, err, errs.ErrBandwidthExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Covers both a deleted package and one that expired or was deactivated
// between resolution and insert: the locked re-check matches no row.
func TestLedgerRepo_InsertAdmitted_PackageGoneOrInactive(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	p := meteredPackage()
	e := someEntry(uuid.NullUUID{UUID: p.ID, Valid: true})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM packages WHERE id=\$1 AND is_active AND expires_at > now\(\) FOR UPDATE`).
		WithArgs(p.ID).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	require.ErrorIs(t, r.InsertAdmitted(context.Background(), e, p), errs.ErrNoEntitlement)
}

func TestLedgerRepo_Insert_Unmetered(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	e := someEntry(uuid.NullUUID{})

	mock.ExpectExec(`INSERT INTO download_ledger`).
		WithArgs(e.ID, e.UserID, e.FileID, e.PackageID, e.OrderID,
			e.FileSize, e.Handle, e.CreatedAt, e.ExpiresAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Insert(context.Background(), e))
}

func TestLedgerRepo_GetByHandle(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewLedgerRepo(db)

	e := someEntry(uuid.NullUUID{})

	mock.ExpectQuery(`FROM download_ledger WHERE handle=\$1`).
		WithArgs(e.Handle).
		WillReturnRows(entryRow(e))
	got, err := r.GetByHandle(context.Background(), e.Handle)
	require.NoError(t, err)
	require.Equal(t, e.ID, got.ID)

	mock.ExpectQuery(`FROM download_ledger WHERE handle=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.GetByHandle(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrTokenNotFound)
}
