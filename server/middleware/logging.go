package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/codecompass/logger"
)

var probePaths = map[string]bool{
	"/health": true,
	"/readyz": true,
	"/livez":  true,
}

// RequestLogger logs every request with method, path, status and duration.
// Probe endpoints are skipped. 5xx logs at error, 4xx at warn, the rest at debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if probePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)
			duration := time.Since(start)

			fields := logger.DurationFields("request", duration)
			fields["method"] = r.Method
			fields["path"] = r.URL.Path
			fields["status"] = sw.status
			fields["bytes"] = sw.bytes
			fields["client_ip"] = clientIP(r)
			if duration > 500*time.Millisecond {
				fields["slow"] = true
			}

			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("Request completed", fields)
			case sw.status >= 400:
				l.Warn("Request completed", fields)
			default:
				l.Debug("Request completed", fields)
			}
		})
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
