package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/mw"
)

func init() { Register(registerState) }

// registerState mounts the routes served from the local store only.
func registerState(r chi.Router, d deps.Deps) {
	mws := []Middleware{mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)}
	if d.RequestTimeout > 0 {
		mws = append(mws, middleware.Timeout(d.RequestTimeout))
	}
	local := r.With(mws...)

	local.Get("/api/status", handlers.Status(d))
	local.Get("/api/pending", handlers.Pending(d))
	local.Get("/api/config", handlers.GetConfig(d))
	local.Put("/api/config", handlers.SaveConfig(d))
	local.Get("/api/devices", handlers.GetDevices(d))
}
