package syncer

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/store"
)

// PendingQueue is an append-only record of failed uploads, cleared in bulk
// after the next successful upload. Nothing replays it automatically.
type PendingQueue struct {
	store store.Local
	now   func() time.Time
}

func NewPendingQueue(st store.Local, now func() time.Time) *PendingQueue {
	if now == nil {
		now = time.Now
	}
	return &PendingQueue{store: st, now: now}
}

// Append records one failed upload payload.
func (q *PendingQueue) Append(ctx context.Context, bookmarks []domain.Bookmark, folders []string) error {
	changes, err := q.store.GetPendingChanges(ctx)
	if err != nil {
		return err
	}
	changes = append(changes, domain.PendingChange{
		Type:      domain.PendingChangeUpload,
		Bookmarks: bookmarks,
		Folders:   folders,
		Timestamp: q.now().UTC(),
	})
	return q.store.SavePendingChanges(ctx, changes)
}

// List returns the queued payloads in append order.
func (q *PendingQueue) List(ctx context.Context) ([]domain.PendingChange, error) {
	return q.store.GetPendingChanges(ctx)
}

// Clear drops every queued payload.
func (q *PendingQueue) Clear(ctx context.Context) error {
	return q.store.SavePendingChanges(ctx, nil)
}
