package middleware

import (
	"net/http"

	"github.com/kbukum/codecompass/util"
)

const defaultMaxBodySize = 1 << 20 // 1MB

// BodySizeLimit caps the request body at maxSize (e.g. "1MB", "512KB").
// Oversized bodies fail when read; declared oversized bodies are rejected
// up front with 413.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				w.Header().Set("Connection", "close")
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
