package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter builds the gateway's exhaustive method+path table. Every
// route beyond this table falls through to the 404 JSON handler.
func NewRouter(g *Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(
		cors.New(
			cors.Options{
				AllowedMethods: []string{http.MethodGet, http.MethodPost},
			},
		).Handler,
	)

	r.Get("/", handleLanding)
	r.Get("/health", handleHealth)
	r.Get("/query", g.handleQuery)
	r.Get(
		"/profile/{pubkey}", func(w http.ResponseWriter, req *http.Request) {
			g.handleProfile(w, req, chi.URLParam(req, "pubkey"))
		},
	)
	r.Get(
		"/event/{id}", func(w http.ResponseWriter, req *http.Request) {
			g.handleEvent(w, req, chi.URLParam(req, "id"))
		},
	)
	r.Post("/publish", g.handlePublish)
	r.Get(
		"/publish/status/{id}", func(w http.ResponseWriter, req *http.Request) {
			g.handlePublishStatus(w, req, chi.URLParam(req, "id"))
		},
	)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { handleNotFound(w, r) })

	return r
}
