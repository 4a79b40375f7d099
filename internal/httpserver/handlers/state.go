package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marksync/internal/commands"
	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
)

func chiParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := d.Commands.GetSyncStatus(r.Context())
		if err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, status)
	}
}

func Pending(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := d.Commands.GetPendingChanges(r.Context())
		if err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, pending)
	}
}

func GetConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := d.Commands.GetConfig(r.Context())
		if err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, cfg)
	}
}

func SaveConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg domain.RemoteConfig
		if err := decode(r, &cfg, false); err != nil {
			fail(w, d.Logger, err)
			return
		}
		if err := d.Commands.SaveConfig(r.Context(), cfg); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

func GetDevices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devices, err := d.Commands.GetDevices(r.Context())
		if err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, devices)
	}
}

// SaveDevices pushes the roster to the remote store, so it is detached
// like the sync routes.
func SaveDevices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commands.SaveDevicesRequest
		if err := decode(r, &req, false); err != nil {
			fail(w, d.Logger, err)
			return
		}
		if err := d.Commands.SaveDevices(detached(r), req); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}
