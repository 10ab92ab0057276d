package middleware

import (
	"net/http"
)

// DefaultMaxBodySize caps event payloads at 1MB.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize wraps the request body in http.MaxBytesReader. Reads past
// maxBytes fail, and the handler decides how to report that.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
