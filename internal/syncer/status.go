package syncer

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/store"
)

// StatusTracker overwrites the single sync status record. lastSync only
// moves on success.
type StatusTracker struct {
	store  store.Local
	logger logger.Logger
	now    func() time.Time
}

func NewStatusTracker(st store.Local, log logger.Logger, now func() time.Time) *StatusTracker {
	if now == nil {
		now = time.Now
	}
	return &StatusTracker{store: st, logger: log, now: now}
}

// Current returns the last recorded status.
func (t *StatusTracker) Current(ctx context.Context) (domain.SyncStatus, error) {
	return t.store.GetSyncStatus(ctx)
}

// Begin records StatusSyncing.
func (t *StatusTracker) Begin(ctx context.Context) error {
	return t.set(ctx, domain.StatusSyncing, "", false)
}

// Succeed records StatusSuccess and stamps lastSync.
func (t *StatusTracker) Succeed(ctx context.Context) error {
	return t.set(ctx, domain.StatusSuccess, "", true)
}

// Fail records StatusError with cause's message. A failure to persist it is
// only logged: the caller is already returning cause.
func (t *StatusTracker) Fail(ctx context.Context, cause error) {
	if err := t.set(ctx, domain.StatusError, cause.Error(), false); err != nil {
		t.logger.Error("failed to record sync error status",
			logger.String("sync_error", cause.Error()),
			logger.Error(err))
	}
}

func (t *StatusTracker) set(ctx context.Context, state domain.SyncState, msg string, stamp bool) error {
	prev, err := t.store.GetSyncStatus(ctx)
	if err != nil {
		prev = domain.IdleStatus()
	}

	next := domain.SyncStatus{Status: state, LastSync: prev.LastSync, Error: msg}
	if stamp {
		ts := t.now().UTC()
		next.LastSync = &ts
	}

	if err := t.store.SaveSyncStatus(ctx, next); err != nil {
		return err
	}
	t.logger.Debug("sync status changed", logger.String("status", string(state)))
	return nil
}
