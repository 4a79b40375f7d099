package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/mw"
)

func init() { Register(registerSync) }

// registerSync mounts the routes that talk to the remote store. They carry
// no request timeout and are rate limited per client.
func registerSync(r chi.Router, d deps.Deps) {
	remote := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:      d.SyncRateBurst,
			PerMinute:  d.SyncRatePerMin,
			TrustProxy: d.TrustProxy,
		}),
	)

	remote.Post("/api/sync", handlers.Sync(d))
	remote.Post("/api/sync/cloud", handlers.SyncToCloud(d))
	remote.Post("/api/sync/upload", handlers.SyncUpload(d))
	remote.Post("/api/sync/trigger", handlers.TriggerSync(d))
	remote.Post("/api/devices/register", handlers.RegisterDevice(d))
	remote.Put("/api/devices", handlers.SaveDevices(d))
	remote.Post("/api/settings/push", handlers.PushSettings(d))
	remote.Post("/api/settings/pull", handlers.PullSettings(d))
	remote.Post("/api/config/test", handlers.TestConnection(d))
	remote.Delete("/api/scenes/{sceneId}/bookmarks", handlers.DeleteSceneBookmarks(d))
}
