package middleware

import (
	"io"
	"net/http"
)

const maxDrainBytes = 1 << 20

// DrainAndCloseRequest - drain what is left of the request body (up to 1MB) and close it,
// so the connection can be reused
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body != nil {
				_, _ = io.CopyN(io.Discard, r.Body, maxDrainBytes)
				_ = r.Body.Close()
			}
		})
	}
}
