package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/store"
)

// StartupCheck reports what the previous run left behind.
type StartupCheck struct {
	store  store.Local
	logger logger.Logger
}

func NewStartupCheck(st store.Local, log logger.Logger) *StartupCheck {
	return &StartupCheck{store: st, logger: log}
}

// Run logs the persisted sync status and queue length. A status stuck on
// syncing means the process died mid-sync; it is not a lock and the next
// sync simply overwrites it.
func (sc *StartupCheck) Run(ctx context.Context) error {
	status, err := sc.store.GetSyncStatus(ctx)
	if err != nil {
		return err
	}
	pending, err := sc.store.GetPendingChanges(ctx)
	if err != nil {
		return err
	}

	fields := []logger.Field{
		logger.String("status", string(status.Status)),
		logger.Int("pending_changes", len(pending)),
	}
	if status.LastSync != nil {
		fields = append(fields, logger.Time("last_sync", *status.LastSync))
	}

	if status.Status == domain.StatusSyncing {
		sc.logger.Info("previous run stopped during a sync, ignoring stale status", fields...)
		return nil
	}
	sc.logger.Info("sync state loaded", fields...)
	return nil
}
