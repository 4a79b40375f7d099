package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/marksync/internal/commands"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// detached keeps the request values but not its cancellation, so a client
// that disconnects cannot abort a sync halfway through.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commands.SyncRequest
		if err := decode(r, &req, true); err != nil {
			fail(w, d.Logger, err)
			return
		}
		if err := d.Commands.Sync(detached(r), req); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

func SyncToCloud(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req commands.SyncToCloudRequest
		if err := decode(r, &req, false); err != nil {
			fail(w, d.Logger, err)
			return
		}
		if err := d.Commands.SyncToCloud(detached(r), req); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

func SyncUpload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Commands.SyncUpload(detached(r)); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

// TriggerSync wakes the scheduler without waiting for the sync.
func TriggerSync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.SyncTrigger <- struct{}{}:
			d.Logger.Info("manual sync triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, commands.OK(nil))
		default:
			d.Logger.Warn("sync already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, commands.Response{Error: "sync already pending, please wait"})
		}
	}
}

func RegisterDevice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, err := d.Commands.RegisterDevice(detached(r))
		if err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, dev)
	}
}

func PushSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Commands.SyncSettings(detached(r)); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

func PullSettings(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Commands.SyncSettingsFromCloud(detached(r)); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

func TestConnection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Commands.TestConnection(r.Context()); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}

func DeleteSceneBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := chiParam(r, "sceneId")
		if err := d.Commands.DeleteSceneBookmarks(detached(r), sceneID); err != nil {
			fail(w, d.Logger, err)
			return
		}
		ok(w, nil)
	}
}
