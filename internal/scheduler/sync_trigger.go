package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// DefaultIdlePoll is how often the trigger re-reads the config while no
// sync interval is set.
const DefaultIdlePoll = time.Minute

// Downloader runs one download of the current scene.
type Downloader interface {
	SyncDown(ctx context.Context, sceneID string) error
}

// ConfigSource provides the current remote config.
type ConfigSource interface {
	GetConfig(ctx context.Context) (domain.RemoteConfig, error)
}

// SyncTrigger downloads the current scene every syncInterval minutes and
// on manual triggers. The interval is re-read after every cycle so a saved
// config applies without a restart.
type SyncTrigger struct {
	syncer        Downloader
	config        ConfigSource
	logger        logger.Logger
	idlePoll      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewSyncTrigger creates a trigger. manualTrigger may be nil.
func NewSyncTrigger(
	syncer Downloader,
	config ConfigSource,
	log logger.Logger,
	idlePoll time.Duration,
	manualTrigger chan struct{},
) *SyncTrigger {
	if idlePoll <= 0 {
		idlePoll = DefaultIdlePoll
	}
	return &SyncTrigger{
		syncer:        syncer,
		config:        config,
		logger:        log,
		idlePoll:      idlePoll,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a first sync, then loops in the background until Stop or ctx
// is done. A failing first sync is logged, not returned: the remote may
// simply be offline.
func (st *SyncTrigger) Start(ctx context.Context) {
	st.Run(ctx)

	go func() {
		timer := time.NewTimer(st.nextWait(ctx))
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				if st.interval(ctx) > 0 {
					st.Run(ctx)
				}
			case <-st.manualTrigger:
				st.logger.Info("manual sync triggered")
				st.Run(ctx)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			case <-st.stopCh:
				return
			case <-ctx.Done():
				return
			}
			timer.Reset(st.nextWait(ctx))
		}
	}()
}

// Stop stops the background loop.
func (st *SyncTrigger) Stop() {
	close(st.stopCh)
}

// Run performs one download when the remote is configured. Errors are only
// logged; the engine has already recorded them in the sync status.
func (st *SyncTrigger) Run(ctx context.Context) {
	cfg, err := st.config.GetConfig(ctx)
	if err != nil {
		st.logger.Error("failed to read remote config", logger.Error(err))
		return
	}
	if !cfg.IsConfigured() {
		st.logger.Debug("remote store not configured, skipping scheduled sync")
		return
	}

	start := time.Now()
	if err := st.syncer.SyncDown(ctx, ""); err != nil {
		st.logger.Error("scheduled sync failed", logger.Error(err))
		return
	}
	st.logger.Info("scheduled sync finished",
		logger.Duration("took", time.Since(start)))
}

func (st *SyncTrigger) interval(ctx context.Context) time.Duration {
	cfg, err := st.config.GetConfig(ctx)
	if err != nil || !cfg.IsConfigured() {
		return 0
	}
	return cfg.Interval()
}

func (st *SyncTrigger) nextWait(ctx context.Context) time.Duration {
	if d := st.interval(ctx); d > 0 {
		return d
	}
	return st.idlePoll
}
