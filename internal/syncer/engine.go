// Package syncer is the scene-scoped merge engine. It pulls one scene from
// the remote store into the local store, or pushes one scene back, after
// checking the device is authorized. It does not schedule itself.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/store"
)

// Remote is the scene-scoped part of the remote store.
type Remote interface {
	ReadScopedResource(ctx context.Context, sceneID string) (domain.Bundle, error)
	WriteScopedResource(ctx context.Context, sceneID string, bundle domain.Bundle) error
	DeleteScopedResource(ctx context.Context, sceneID string) error
}

// Registry provides the device identity and authorization.
type Registry interface {
	EnsureRegistered(ctx context.Context) (domain.Device, error)
	Authorize(ctx context.Context, dev domain.Device) error
	PullSettings(ctx context.Context) error
	PushSettings(ctx context.Context) error
	Touch(ctx context.Context, dev domain.Device) (domain.Device, error)
}

// Notifier receives best-effort events for UI layers.
type Notifier interface {
	Broadcast(ev domain.Event)
}

// Engine runs SyncDown and SyncUp. Calls for the same device are serialized.
type Engine struct {
	store    store.Local
	remote   Remote
	registry Registry
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time

	status *StatusTracker
	queue  *PendingQueue
	guard  *keyedGuard
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. notifier may be nil.
func New(st store.Local, remote Remote, reg Registry, notifier Notifier, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		remote:   remote,
		registry: reg,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
		guard:    newKeyedGuard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.status = NewStatusTracker(st, log, e.now)
	e.queue = NewPendingQueue(st, e.now)
	return e
}

// Status exposes the sync status tracker.
func (e *Engine) Status() *StatusTracker { return e.status }

// Queue exposes the pending-change queue.
func (e *Engine) Queue() *PendingQueue { return e.queue }

// lock registers the device and takes its sync slot.
func (e *Engine) lock(ctx context.Context) (domain.Device, func(), error) {
	dev, err := e.registry.EnsureRegistered(ctx)
	if err != nil {
		return domain.Device{}, nil, fmt.Errorf("device registration failed: %w", err)
	}
	release, err := e.guard.Acquire(ctx, dev.ID)
	if err != nil {
		return domain.Device{}, nil, err
	}
	return dev, release, nil
}

// SyncDown replaces one scene's local bookmarks with the remote copy. An
// empty sceneID targets the current scene. If the remote roster no longer
// lists this device, all synced local state is wiped and
// domain.ErrUnauthorized is returned.
func (e *Engine) SyncDown(ctx context.Context, sceneID string) error {
	dev, release, err := e.lock(ctx)
	if err != nil {
		e.status.Fail(ctx, err)
		return err
	}
	defer release()

	log := e.logger.With(logger.String("device_id", dev.ID))
	fail := func(err error) error {
		log.Error("download failed", logger.Error(err))
		e.status.Fail(ctx, err)
		return err
	}

	if err := e.registry.PullSettings(ctx); err != nil {
		log.Warn("settings pull failed, continuing", logger.Error(err))
	}

	if err := e.registry.Authorize(ctx, dev); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			log.Warn("device is not authorized, clearing local data")
			if clearErr := e.store.ClearSyncedState(ctx); clearErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to clear local data: %w", clearErr))
			}
		}
		return fail(err)
	}

	if err := e.status.Begin(ctx); err != nil {
		return fail(err)
	}

	// scenes may have changed since the first pull
	if err := e.registry.PullSettings(ctx); err != nil {
		log.Warn("settings pull failed, continuing", logger.Error(err))
	}

	target := sceneID
	if target == "" {
		if target, err = ResolveCurrentScene(ctx, e.store); err != nil {
			return fail(err)
		}
	}
	log = log.With(logger.String("scene_id", target))

	pulled, err := e.remote.ReadScopedResource(ctx, target)
	if err != nil {
		return fail(err)
	}

	local, err := e.store.GetBundle(ctx)
	if err != nil {
		return fail(err)
	}

	merged, skipped := MergeScene(local, target, pulled)
	if skipped > 0 {
		log.Warn("skipped pulled bookmarks whose id belongs to another scene",
			logger.Int("skipped", skipped))
	}

	if err := e.store.SaveBundle(ctx, merged); err != nil {
		return fail(err)
	}

	e.touch(ctx, dev, log)

	if err := e.status.Succeed(ctx); err != nil {
		return fail(err)
	}
	e.notify(target)

	log.Info("download finished",
		logger.Int("pulled", len(pulled.Bookmarks)),
		logger.Int("stored", len(merged.Bookmarks)))
	return nil
}

// SyncUp writes one scene's bookmarks to the remote store. The scene is
// sceneID, else the first bookmark's scene (default when unset), else the
// current scene. On any
// failure the payload is appended to the pending-change queue and the
// error is returned; a success clears the queue.
func (e *Engine) SyncUp(ctx context.Context, bookmarks []domain.Bookmark, folders []string, sceneID string) error {
	err := e.syncUp(ctx, bookmarks, folders, sceneID)
	if err == nil {
		return nil
	}

	e.logger.Error("upload failed",
		logger.String("scene_id", sceneID),
		logger.Int("bookmarks", len(bookmarks)),
		logger.Error(err))
	e.status.Fail(ctx, err)
	if qErr := e.queue.Append(ctx, bookmarks, folders); qErr != nil {
		e.logger.Error("failed to queue pending change", logger.Error(qErr))
	}
	return err
}

func (e *Engine) syncUp(ctx context.Context, bookmarks []domain.Bookmark, folders []string, sceneID string) error {
	dev, release, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	log := e.logger.With(logger.String("device_id", dev.ID))

	// unlike a download, nothing is wiped here
	if err := e.registry.Authorize(ctx, dev); err != nil {
		return err
	}

	if err := e.status.Begin(ctx); err != nil {
		return err
	}

	target, err := e.uploadTarget(ctx, bookmarks, sceneID)
	if err != nil {
		return err
	}
	log = log.With(logger.String("scene_id", target))

	scoped := ScopeToScene(bookmarks, folders, target)
	if err := e.remote.WriteScopedResource(ctx, target, scoped); err != nil {
		return err
	}
	if err := e.registry.PushSettings(ctx); err != nil {
		return err
	}

	e.touch(ctx, dev, log)

	if err := e.status.Succeed(ctx); err != nil {
		return err
	}
	if err := e.queue.Clear(ctx); err != nil {
		log.Error("failed to clear pending changes", logger.Error(err))
	}

	log.Info("upload finished",
		logger.Int("bookmarks", len(scoped.Bookmarks)),
		logger.Int("folders", len(scoped.Folders)))
	return nil
}

func (e *Engine) uploadTarget(ctx context.Context, bookmarks []domain.Bookmark, sceneID string) (string, error) {
	if sceneID != "" {
		return sceneID, nil
	}
	if len(bookmarks) > 0 {
		// same rule ScopeToScene filters by
		return bookmarks[0].SceneOrDefault(), nil
	}
	return ResolveCurrentScene(ctx, e.store)
}

// SyncUploadCurrent pushes the locally stored bookmarks of the current scene.
func (e *Engine) SyncUploadCurrent(ctx context.Context) error {
	target, err := ResolveCurrentScene(ctx, e.store)
	if err != nil {
		return err
	}
	local, err := e.store.GetBundle(ctx)
	if err != nil {
		return err
	}
	scoped := ScopeToScene(local.Bookmarks, local.Folders, target)
	return e.SyncUp(ctx, scoped.Bookmarks, scoped.Folders, target)
}

// DeleteScene removes a scene's remote bookmark resource. The default scene
// cannot be deleted.
func (e *Engine) DeleteScene(ctx context.Context, sceneID string) error {
	if sceneID == "" {
		return domain.ErrSceneNotFound
	}
	if sceneID == domain.DefaultSceneID {
		return domain.ErrDefaultScene
	}

	_, release, err := e.lock(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := e.remote.DeleteScopedResource(ctx, sceneID); err != nil {
		return err
	}
	e.logger.Info("deleted remote scene bookmarks", logger.String("scene_id", sceneID))
	return nil
}

// touch is housekeeping: a failure is logged and the sync still succeeds.
func (e *Engine) touch(ctx context.Context, dev domain.Device, log logger.Logger) {
	if _, err := e.registry.Touch(ctx, dev); err != nil {
		log.Warn("failed to update device last seen", logger.Error(err))
	}
}

func (e *Engine) notify(sceneID string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Broadcast(domain.Event{
		Type:    domain.EventBookmarksUpdated,
		SceneID: sceneID,
		At:      e.now().UTC(),
	})
}
