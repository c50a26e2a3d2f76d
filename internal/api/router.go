// Package api exposes the capture pipeline over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(app.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/timings", app.TimingsHandler)

		r.Route("/captures", func(r chi.Router) {
			r.Post("/", app.CreateCaptureHandler)
			r.Post("/analyze", app.AnalyzeHandler)
			r.Get("/", app.ListCapturesHandler)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.GetCaptureHandler)
				r.Delete("/", app.DeleteCaptureHandler)
				r.Get("/image", app.CaptureImageHandler)
				r.Post("/vision", app.VisionHandler)
			})
		})
	})

	return r
}
