// Package quota implements multi-dimensional admission checks against a
// package's limits: lifetime bandwidth, daily fair-usage bytes and daily
// file count. "Today" is the current UTC calendar day everywhere.
package quota

import (
	"time"

	"github.com/filemart/downloads/internal/errs"
	"github.com/filemart/downloads/internal/model"
)

// DayStart returns the UTC calendar-day boundary containing t.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckAdmission reports whether a download of candidateSize bytes may be
// admitted against the package limits given current usage. Checks are
// ordered: lifetime bandwidth, then daily bytes, then daily file count.
// Equality is allowed; only crossing a ceiling denies.
func CheckAdmission(p *model.Package, u model.Usage, candidateSize int64) error {
	if u.TotalBytes+candidateSize > p.Bandwidth {
		return errs.ErrBandwidthExceeded
	}
	if u.TodayBytes+candidateSize > p.Fair {
		return errs.ErrDailyBandwidthExceeded
	}
	if u.TodayFiles+1 > p.FairFiles {
		return errs.ErrDailyFileLimitExceeded
	}
	return nil
}
