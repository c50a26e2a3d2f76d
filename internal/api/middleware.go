package api

import (
	"net/http"
	"time"

	"medcapture/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request through the component logger.
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := map[string]interface{}{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      status,
					"bytes":       ww.BytesWritten(),
					"duration_ms": time.Since(start).Milliseconds(),
					"remote":      r.RemoteAddr,
				}
				if id := middleware.GetReqID(r.Context()); id != "" {
					fields["request_id"] = id
				}

				switch {
				case status >= 500:
					log.Warning("HTTP", "request failed", fields)
				default:
					log.Info("HTTP", "request served", fields)
				}
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
