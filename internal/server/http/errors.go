package httpserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/filemart/downloads/internal/errs"
)

// errorStatus maps domain sentinels to HTTP status and stable error codes.
// Anything unmapped is an infrastructure failure: logged, masked as a
// generic 500 with no detail leaked to the caller.
func errorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, errs.ErrNoEntitlement):
		return http.StatusForbidden, "no_entitlement", true
	case errors.Is(err, errs.ErrBandwidthExceeded):
		return http.StatusForbidden, "bandwidth_exceeded", true
	case errors.Is(err, errs.ErrDailyBandwidthExceeded):
		return http.StatusForbidden, "daily_bandwidth_exceeded", true
	case errors.Is(err, errs.ErrDailyFileLimitExceeded):
		return http.StatusForbidden, "daily_file_limit_exceeded", true
	case errors.Is(err, errs.ErrDeviceLimitExceeded):
		return http.StatusForbidden, "device_limit_exceeded", true
	case errors.Is(err, errs.ErrNotPurchased):
		return http.StatusPaymentRequired, "not_purchased", true
	case errors.Is(err, errs.ErrFileNotFound):
		return http.StatusNotFound, "file_not_found", true
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found", true
	case errors.Is(err, errs.ErrTokenNotFound):
		return http.StatusNotFound, "token_not_found", true
	case errors.Is(err, errs.ErrTokenExpired):
		return http.StatusGone, "token_expired", true
	case errors.Is(err, errs.ErrTokenOwnerMismatch):
		return http.StatusForbidden, "token_owner_mismatch", true
	}
	return 0, "", false
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	// Soft denial: the device can still be trusted, tell the caller how.
	var trust *errs.DeviceTrustRequired
	if errors.As(err, &trust) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"status": "error",
			"code":   "awaiting_device_trust",
			"data": map[string]any{
				"used_devices":    trust.UsedDevices,
				"allowed_devices": trust.AllowedDevices,
				"fingerprint":     trust.Fingerprint,
			},
		})
		return
	}
	if status, code, ok := errorStatus(err); ok {
		writeError(w, status, code, err.Error())
		return
	}
	h.log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
