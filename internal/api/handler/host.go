package handler

import (
	"net/http"

	"github.com/bcnelson/dyndns/internal/domain"
	"github.com/bcnelson/dyndns/internal/storage"
	"github.com/bcnelson/dyndns/internal/validation"
	"github.com/go-chi/chi/v5"
)

// HostHandler handles the read-only host listing endpoints.
type HostHandler struct {
	store storage.Storage
}

// NewHostHandler creates a new HostHandler.
func NewHostHandler(store storage.Storage) *HostHandler {
	return &HostHandler{store: store}
}

// List lists all hosts.
func (h *HostHandler) List(w http.ResponseWriter, r *http.Request) {
	hosts, err := h.store.ListHosts(r.Context())
	if err != nil {
		handleError(w, &domain.StorageError{Op: "list", Err: err})
		return
	}

	if hosts == nil {
		hosts = []*domain.HostRecord{}
	}
	respondJSON(w, http.StatusOK, hosts)
}

// Get gets a host by name.
func (h *HostHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := validation.ValidateHostname(name); err != nil {
		handleError(w, err)
		return
	}

	host, found, err := h.store.GetHost(r.Context(), name)
	if err != nil {
		handleError(w, &domain.StorageError{Op: "get", Hostname: name, Err: err})
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

	SetHostETag(w, host)
	respondJSON(w, http.StatusOK, host)
}
