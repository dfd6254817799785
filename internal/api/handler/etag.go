package handler

import (
	"fmt"
	"net/http"

	"github.com/bcnelson/dyndns/internal/domain"
)

// GenerateETag generates an ETag for a host record from its name, address
// and last updated time. Touches do not change it.
// Format: "<name>-<address>-<last_updated_unix_nano>"
func GenerateETag(host *domain.HostRecord) string {
	return fmt.Sprintf(`"%s-%s-%d"`, host.Name, host.Address, host.LastUpdated.UnixNano())
}

// SetHostETag sets the ETag header on the response.
func SetHostETag(w http.ResponseWriter, host *domain.HostRecord) {
	w.Header().Set("ETag", GenerateETag(host))
}

// NotModified reports whether the If-None-Match header matches the
// record's current ETag.
func NotModified(r *http.Request, host *domain.HostRecord) bool {
	ifNoneMatch := r.Header.Get("If-None-Match")
	if ifNoneMatch == "" {
		return false
	}
	return ifNoneMatch == GenerateETag(host)
}
