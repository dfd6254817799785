package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/service"
	"github.com/bcnelson/dyndns/internal/storage"
	"github.com/bcnelson/dyndns/internal/validation"
)

// UpdateHandler handles the dynamic DNS update endpoint.
type UpdateHandler struct {
	store      storage.Storage
	reconciler *service.Reconciler
}

// NewUpdateHandler creates a new UpdateHandler.
func NewUpdateHandler(store storage.Storage, reconciler *service.Reconciler) *UpdateHandler {
	return &UpdateHandler{store: store, reconciler: reconciler}
}

// Update reconciles the host named in the query with the reported address,
// or with the caller's own address when none is given.
func (h *UpdateHandler) Update(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.RawQuery
	remote := remoteAddress(r)

	hostname := validation.ExtractHostname(raw)
	if hostname == "" {
		respondValidationError(w, validation.NewValidationError(validation.FieldHostname, "",
			"a host parameter of 1 to 63 letters, numbers, or underscores is required"))
		return
	}

	address := validation.ExtractAddress(raw)
	if address == "" {
		address = remote
	}
	if address == "" {
		respondValidationError(w, validation.NewValidationError(validation.FieldAddress, r.RemoteAddr,
			"no ip parameter given and the caller address is not an IP address"))
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), hostname, address)
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == domain.OutcomeCreated {
		status = http.StatusCreated
	}

	resp := &domain.UpdateResponse{ReconcileResult: *result}
	if debugRequested(raw) {
		resp.Debug = &domain.DebugInfo{
			Method:        r.Method,
			Hostname:      hostname,
			Address:       address,
			RemoteAddress: remote,
		}
	}

	SetHostETag(w, result.Host)
	respondJSON(w, status, resp)
}

// Lookup returns the stored record for the host named in the query.
func (h *UpdateHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.RawQuery

	hostname := validation.ExtractHostname(raw)
	if hostname == "" {
		respondValidationError(w, validation.NewValidationError(validation.FieldHostname, "",
			"a host parameter of 1 to 63 letters, numbers, or underscores is required"))
		return
	}

	host, found, err := h.store.GetHost(r.Context(), hostname)
	if err != nil {
		handleError(w, &domain.StorageError{Op: "get", Hostname: hostname, Err: err})
		return
	}
	if !found {
		handleError(w, domain.ErrNotFound)
		return
	}

	if NotModified(r, host) {
		SetHostETag(w, host)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := &domain.HostResponse{Host: host}
	if debugRequested(raw) {
		resp.Debug = &domain.DebugInfo{
			Method:        r.Method,
			Hostname:      hostname,
			Address:       validation.ExtractAddress(raw),
			RemoteAddress: remoteAddress(r),
		}
	}

	SetHostETag(w, host)
	respondJSON(w, http.StatusOK, resp)
}

// remoteAddress returns the caller's IP in canonical form, or "" if
// RemoteAddr does not hold one.
func remoteAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return validation.NormalizeAddress(host)
}

// debugRequested reports whether the query carries debug=true.
func debugRequested(raw string) bool {
	return strings.Contains(raw, "debug=true")
}
