// Package httpserver exposes the entitlement engine over a small JSON API.
// Authentication happens upstream; requests arrive with a trusted user id
// in the X-User-Id header.
package httpserver

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/filemart/downloads/internal/device"
	"github.com/filemart/downloads/internal/model"
	"github.com/filemart/downloads/internal/service"
)

const userIDHeader = "X-User-Id"

// Handler wires the application services to HTTP endpoints.
type Handler struct {
	grants   service.GrantService
	tokens   service.TokenService
	packages service.PackageService
	devices  service.DeviceService
	log      *zap.Logger
}

// New constructs the HTTP handler.
func New(
	grants service.GrantService,
	tokens service.TokenService,
	packages service.PackageService,
	devices service.DeviceService,
	log *zap.Logger,
) *Handler {
	return &Handler{grants: grants, tokens: tokens, packages: packages, devices: devices, log: log}
}

func userID(r *http.Request) (uuid.UUID, error) {
	return uuid.FromString(r.Header.Get(userIDHeader))
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// transport peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func signals(r *http.Request) model.DeviceSignals {
	return model.DeviceSignals{
		UserAgent:      r.UserAgent(),
		AcceptLanguage: r.Header.Get("Accept-Language"),
		IP:             clientIP(r),
	}
}

func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func downloadLink(handle string) string { return "/v1/downloads/" + handle }

type grantRequest struct {
	FileID uuid.UUID `json:"file_id"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or malformed user id")
		return
	}
	var req grantRequest
	if err := decode(r, &req); err != nil || req.FileID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "file_id is required")
		return
	}
	g, err := h.grants.Grant(r.Context(), uid, req.FileID, signals(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"link":       downloadLink(g.Handle),
		"expires_at": g.ExpiresAt,
	})
}

type grantPaidRequest struct {
	FileID  uuid.UUID `json:"file_id"`
	OrderID uuid.UUID `json:"order_id"`
}

func (h *Handler) grantPaid(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or malformed user id")
		return
	}
	var req grantPaidRequest
	if err := decode(r, &req); err != nil || req.FileID == uuid.Nil || req.OrderID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "file_id and order_id are required")
		return
	}
	g, err := h.grants.GrantPaid(r.Context(), uid, req.FileID, req.OrderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"link":       downloadLink(g.Handle),
		"expires_at": g.ExpiresAt,
	})
}

type trustRequest struct {
	Fingerprint string `json:"fingerprint"`
	IP          string `json:"ip"`
}

func (h *Handler) trustDevice(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or malformed user id")
		return
	}
	var req trustRequest
	if err := decode(r, &req); err != nil || req.Fingerprint == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "fingerprint is required")
		return
	}
	fp := device.Normalize(req.Fingerprint)
	if !device.Valid(fp) {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed fingerprint")
		return
	}
	ip := req.IP
	if ip == "" {
		ip = clientIP(r)
	}
	if err := h.devices.Trust(r.Context(), uid, fp, ip); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"trusted": true})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or malformed user id")
		return
	}
	handle := chi.URLParam(r, "handle")
	f, err := h.tokens.Redeem(r.Context(), handle, uid)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"link": f.URL})
}

type setCurrentRequest struct {
	PackageID uuid.UUID `json:"package_id"`
}

func (h *Handler) setCurrentPackage(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or malformed user id")
		return
	}
	var req setCurrentRequest
	if err := decode(r, &req); err != nil || req.PackageID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "bad_request", "package_id is required")
		return
	}
	if err := h.packages.SetCurrent(r.Context(), uid, req.PackageID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"current": req.PackageID})
}

type packageStatusResponse struct {
	ID         uuid.UUID `json:"id"`
	CatalogID  uuid.UUID `json:"catalog_id"`
	Bandwidth  int64     `json:"bandwidth"`
	Fair       int64     `json:"fair"`
	FairFiles  int       `json:"fair_files"`
	Devices    int       `json:"devices"`
	IsCurrent  bool      `json:"is_current"`
	ExpiresAt  string    `json:"expires_at"`
	TotalBytes int64     `json:"used_bytes"`
	TodayBytes int64     `json:"used_today_bytes"`
	TodayFiles int       `json:"used_today_files"`
}

func (h *Handler) listPackages(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "missing or malformed user id")
		return
	}
	statuses, err := h.packages.ListActive(r.Context(), uid)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]packageStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, packageStatusResponse{
			ID:         st.Package.ID,
			CatalogID:  st.Package.CatalogID,
			Bandwidth:  st.Package.Bandwidth,
			Fair:       st.Package.Fair,
			FairFiles:  st.Package.FairFiles,
			Devices:    st.Package.Devices,
			IsCurrent:  st.Package.IsCurrent,
			ExpiresAt:  st.Package.ExpiresAt.UTC().Format(time.RFC3339),
			TotalBytes: st.Usage.TotalBytes,
			TodayBytes: st.Usage.TodayBytes,
			TodayFiles: st.Usage.TodayFiles,
		})
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"alive": true})
}
