package middleware

import (
	"net/http"
	"strings"

	"notes-server/internal/service"
)

const DeviceIDHeader = "X-Device-ID"

// DeviceID tags the request context with the caller's device so note events
// are not echoed back to it.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(DeviceIDHeader)); id != "" {
			r = r.WithContext(service.WithDeviceID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
