package syncer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/registry"
	"github.com/MrSnakeDoc/marksync/internal/store"
	"github.com/MrSnakeDoc/marksync/internal/store/memory"
	"github.com/MrSnakeDoc/marksync/internal/webdav"
	"github.com/MrSnakeDoc/marksync/internal/webdav/webdavtest"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Broadcast(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

type fixture struct {
	st     *store.Store
	srv    *webdavtest.Server
	dav    *webdav.Client
	reg    *registry.Registry
	events *recorder
	engine *Engine
}

func newFixture(t *testing.T, deviceID string) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.New("error", false)

	srv := webdavtest.NewServer(t)
	st := store.New(memory.New())
	require.NoError(t, st.SaveConfig(ctx, domain.RemoteConfig{
		ServerURL: srv.URL,
		Username:  webdavtest.Username,
		Password:  webdavtest.Password,
		Path:      "marksync",
	}))
	require.NoError(t, st.SaveScenes(ctx, []domain.Scene{
		domain.DefaultScene(),
		{ID: "work", Name: "Work"},
		{ID: "home", Name: "Home"},
	}))

	dav := webdav.New(st, srv.Client(), log)
	clock := func() time.Time { return fixedNow }
	reg := registry.New(st, dav, log, registry.Policy{},
		registry.WithClock(clock),
		registry.WithDeviceName(func() string { return "Linux / x64" }),
		registry.WithIDGenerator(func() string { return deviceID }),
	)
	events := &recorder{}

	return &fixture{
		st:     st,
		srv:    srv,
		dav:    dav,
		reg:    reg,
		events: events,
		engine: New(st, dav, reg, events, log, WithClock(clock)),
	}
}

func (f *fixture) register(t *testing.T) domain.Device {
	t.Helper()
	dev, err := f.reg.EnsureRegistered(context.Background())
	require.NoError(t, err)
	return dev
}

func (f *fixture) remoteScene(t *testing.T, sceneID string) domain.Bundle {
	t.Helper()
	b, err := f.dav.ReadScopedResource(context.Background(), sceneID)
	require.NoError(t, err)
	return b
}

func (f *fixture) localBundle(t *testing.T) domain.Bundle {
	t.Helper()
	b, err := f.st.GetBundle(context.Background())
	require.NoError(t, err)
	return b
}

func ids(bookmarks []domain.Bookmark) []string {
	out := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, b.ID)
	}
	return out
}

func bm(id, scene, folder string) domain.Bookmark {
	return domain.Bookmark{
		ID:     id,
		Scene:  scene,
		Title:  "title " + id,
		URL:    "https://example.com/" + id,
		Folder: folder,
		Tags:   []string{},
	}
}

// seedDevice stores an identity and roster as a previous process left them.
func (f *fixture) seedDevice(t *testing.T, id string, roster []domain.Device) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.st.SaveDeviceInfo(ctx, domain.Device{ID: id, Name: "Linux / x64", CreatedAt: fixedNow}))
	require.NoError(t, f.st.SaveDevices(ctx, roster))
}

type clearFailStore struct {
	*store.Store
}

func (clearFailStore) ClearSyncedState(context.Context) error {
	return errors.New("disk full")
}

func workHome() []domain.Bookmark {
	return []domain.Bookmark{
		bm("A", "work", "Dev/Go"),
		bm("B", "work", "Dev"),
		bm("C", "home", "Kitchen"),
	}
}

func TestSyncUpWritesOnlyTargetScene(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncUp(ctx, workHome(), []string{"Dev/Go", "Dev", "Kitchen"}, "work"))

	work := f.remoteScene(t, "work")
	require.Equal(t, []string{"A", "B"}, ids(work.Bookmarks))
	require.Equal(t, []string{"Dev/Go", "Dev"}, work.Folders)
	require.Zero(t, f.srv.CountRequests(http.MethodPut, webdav.SceneResource("home")))

	status, err := f.engine.Status().Current(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, status.Status)
	require.NotNil(t, status.LastSync)
	require.True(t, status.LastSync.Equal(fixedNow))
}

func TestSyncUpInfersSceneFromFirstBookmark(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)

	require.NoError(t, f.engine.SyncUp(context.Background(), workHome()[2:], nil, ""))

	home := f.remoteScene(t, "home")
	require.Equal(t, []string{"C"}, ids(home.Bookmarks))
	require.Zero(t, f.srv.CountRequests(http.MethodPut, webdav.SceneResource("work")))
}

func TestSyncUpTreatsUnscopedBookmarksAsDefault(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)

	bookmarks := []domain.Bookmark{bm("X", "", "Inbox"), bm("Y", "work", "Dev")}
	require.NoError(t, f.engine.SyncUp(context.Background(), bookmarks, nil, domain.DefaultSceneID))

	def := f.remoteScene(t, domain.DefaultSceneID)
	require.Equal(t, []string{"X"}, ids(def.Bookmarks))
	require.Equal(t, domain.DefaultSceneID, def.Bookmarks[0].Scene)
}

func TestSyncDownReplacesOnlyTargetScene(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{
		Bookmarks: []domain.Bookmark{bm("A", "work", "Dev"), bm("C", "home", "Kitchen")},
		Folders:   []string{"Dev", "Kitchen"},
	}))
	require.NoError(t, f.dav.WriteScopedResource(ctx, "work", domain.Bundle{
		Bookmarks: []domain.Bookmark{bm("B", "", " Ops // Oncall ")},
		Folders:   []string{"Ops/Oncall"},
	}))

	require.NoError(t, f.engine.SyncDown(ctx, "work"))

	local := f.localBundle(t)
	require.Equal(t, []string{"C", "B"}, ids(local.Bookmarks))
	require.Equal(t, "work", local.Bookmarks[1].Scene)
	require.Equal(t, "Ops/Oncall", local.Bookmarks[1].Folder)
	require.Equal(t, []string{"Dev", "Kitchen", "Ops/Oncall"}, local.Folders)

	status, err := f.engine.Status().Current(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusSuccess, status.Status)

	events := f.events.Events()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventBookmarksUpdated, events[0].Type)
	require.Equal(t, "work", events[0].SceneID)
}

func TestSyncDownDefaultsToCurrentScene(t *testing.T) {
	f := newFixture(t, "dev1")
	ctx := context.Background()
	require.NoError(t, f.st.SaveCurrentSceneID(ctx, "home"))
	f.register(t)

	require.NoError(t, f.dav.WriteScopedResource(ctx, "home", domain.Bundle{
		Bookmarks: []domain.Bookmark{bm("H", "home", "")},
	}))

	require.NoError(t, f.engine.SyncDown(ctx, ""))
	require.Equal(t, []string{"H"}, ids(f.localBundle(t).Bookmarks))
}

func TestSyncDownCurrentSceneIgnoresOtherScenesResource(t *testing.T) {
	f := newFixture(t, "dev1")
	ctx := context.Background()
	require.NoError(t, f.st.SaveCurrentSceneID(ctx, "home"))
	f.register(t)

	require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{
		Bookmarks: []domain.Bookmark{bm("A", "work", "Dev"), bm("C", "home", "Kitchen")},
	}))
	require.NoError(t, f.dav.WriteScopedResource(ctx, "work", domain.Bundle{
		Bookmarks: []domain.Bookmark{bm("R1", "work", ""), bm("R2", "work", "")},
	}))

	require.NoError(t, f.engine.SyncDown(ctx, ""))

	local := f.localBundle(t)
	require.Equal(t, []string{"A"}, ids(local.Bookmarks))
	require.Equal(t, "work", local.Bookmarks[0].Scene)
	require.Equal(t, 1, f.srv.CountRequests(http.MethodGet, webdav.SceneResource("home")))
	require.Zero(t, f.srv.CountRequests(http.MethodGet, webdav.SceneResource("work")))
}

func TestSyncDownMissingRemoteEmptiesScene(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{Bookmarks: workHome()}))
	require.NoError(t, f.engine.SyncDown(ctx, "work"))

	require.Equal(t, []string{"C"}, ids(f.localBundle(t).Bookmarks))
}

func TestRoundTripLeavesRemoteUnchanged(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncUp(ctx, workHome(), nil, "work"))
	before := f.remoteScene(t, "work")

	require.NoError(t, f.engine.SyncDown(ctx, "work"))
	local := f.localBundle(t)
	require.NoError(t, f.engine.SyncUp(ctx, local.Bookmarks, local.Folders, "work"))

	require.Equal(t, before, f.remoteScene(t, "work"))
}

func TestSyncDownUnauthorizedWipesLocalState(t *testing.T) {
	tests := []struct {
		name   string
		roster []domain.Device
	}{
		{name: "device removed", roster: []domain.Device{{ID: "dev1", Name: "macOS / arm64"}}},
		{name: "empty roster", roster: []domain.Device{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "dev2")
			f.register(t)
			ctx := context.Background()

			require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{Bookmarks: workHome()}))
			require.NoError(t, f.dav.WriteSettings(ctx, domain.RemoteSettings{Devices: tt.roster}))

			err := f.engine.SyncDown(ctx, "work")
			require.ErrorIs(t, err, domain.ErrUnauthorized)

			require.Empty(t, f.localBundle(t).Bookmarks)

			status, err := f.engine.Status().Current(ctx)
			require.NoError(t, err)
			require.Equal(t, domain.StatusError, status.Status)
			require.NotEmpty(t, status.Error)

			info, err := f.st.GetDeviceInfo(ctx)
			require.NoError(t, err)
			require.NotNil(t, info, "device identity survives the wipe")

			cfg, err := f.st.GetConfig(ctx)
			require.NoError(t, err)
			require.True(t, cfg.IsConfigured())

			require.Zero(t, f.srv.CountRequests(http.MethodGet, webdav.SceneResource("work")))
			require.Empty(t, f.events.Events())
		})
	}
}

func TestSyncDownRevokedDeviceAfterRestart(t *testing.T) {
	tests := []struct {
		name   string
		remote []domain.Device
	}{
		{name: "device removed", remote: []domain.Device{{ID: "dev1"}}},
		{name: "empty roster", remote: []domain.Device{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "unused")
			f.seedDevice(t, "dev2", []domain.Device{{ID: "dev1"}, {ID: "dev2"}})
			ctx := context.Background()

			require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{Bookmarks: workHome()}))
			require.NoError(t, f.dav.WriteSettings(ctx, domain.RemoteSettings{Devices: tt.remote}))

			err := f.engine.SyncDown(ctx, "work")
			require.ErrorIs(t, err, domain.ErrUnauthorized)
			require.Empty(t, f.localBundle(t).Bookmarks)

			status, err := f.engine.Status().Current(ctx)
			require.NoError(t, err)
			require.Equal(t, domain.StatusError, status.Status)

			remote, err := f.dav.ReadSettings(ctx)
			require.NoError(t, err)
			require.False(t, domain.ContainsDevice(remote.Devices, "dev2"))
		})
	}
}

func TestSyncDownReportsFailedWipe(t *testing.T) {
	f := newFixture(t, "dev2")
	f.register(t)
	ctx := context.Background()
	engine := New(clearFailStore{f.st}, f.dav, f.reg, f.events, logger.New("error", false), WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, f.dav.WriteSettings(ctx, domain.RemoteSettings{Devices: []domain.Device{{ID: "dev1"}}}))

	err := engine.SyncDown(ctx, "work")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorContains(t, err, "disk full")

	status, err := engine.Status().Current(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, status.Status)
	require.Contains(t, status.Error, "disk full")
}

func TestSyncDownTransportErrorKeepsLocalState(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{Bookmarks: workHome()}))
	f.srv.Fail(http.MethodGet, http.StatusBadGateway)

	err := f.engine.SyncDown(ctx, "work")
	require.Error(t, err)
	require.False(t, errors.Is(err, domain.ErrUnauthorized))
	require.Len(t, f.localBundle(t).Bookmarks, 3)
}

func TestSyncUpUnauthorizedDoesNotWrite(t *testing.T) {
	f := newFixture(t, "dev2")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.dav.WriteSettings(ctx, domain.RemoteSettings{
		Devices: []domain.Device{{ID: "dev1", Name: "macOS / arm64"}},
	}))

	err := f.engine.SyncUp(ctx, workHome(), nil, "work")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Zero(t, f.srv.CountRequests(http.MethodPut, webdav.SceneResource("work")))

	pending, err := f.engine.Queue().List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestSyncUpRevokedDeviceAfterRestartDoesNotWrite(t *testing.T) {
	f := newFixture(t, "unused")
	f.seedDevice(t, "dev2", []domain.Device{{ID: "dev1"}, {ID: "dev2"}})
	ctx := context.Background()

	require.NoError(t, f.dav.WriteSettings(ctx, domain.RemoteSettings{
		Devices: []domain.Device{{ID: "dev1", Name: "macOS / arm64"}},
	}))

	err := f.engine.SyncUp(ctx, workHome(), nil, "work")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Zero(t, f.srv.CountRequests(http.MethodPut, webdav.SceneResource("work")))

	remote, err := f.dav.ReadSettings(ctx)
	require.NoError(t, err)
	require.Len(t, remote.Devices, 1)
	require.Equal(t, "dev1", remote.Devices[0].ID)
}

func TestSyncUpUnscopedFirstBookmarkTargetsDefault(t *testing.T) {
	f := newFixture(t, "dev1")
	ctx := context.Background()
	require.NoError(t, f.st.SaveCurrentSceneID(ctx, "work"))
	f.register(t)

	require.NoError(t, f.engine.SyncUp(ctx, []domain.Bookmark{bm("X", "", "Inbox")}, nil, ""))

	def := f.remoteScene(t, domain.DefaultSceneID)
	require.Equal(t, []string{"X"}, ids(def.Bookmarks))
	require.Zero(t, f.srv.CountRequests(http.MethodPut, webdav.SceneResource("work")))
}

func TestSyncUpFailureQueuesThenSuccessClears(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	f.srv.Fail(http.MethodPut, http.StatusInsufficientStorage)
	err := f.engine.SyncUp(ctx, workHome(), []string{"Dev"}, "work")
	require.Error(t, err)
	require.Equal(t, http.StatusInsufficientStorage, webdav.StatusCode(err))

	pending, err := f.engine.Queue().List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, domain.PendingChangeUpload, pending[0].Type)
	require.Len(t, pending[0].Bookmarks, 3)
	require.Equal(t, []string{"Dev"}, pending[0].Folders)

	status, err := f.engine.Status().Current(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, status.Status)
	require.Contains(t, status.Error, "507")

	require.Error(t, f.engine.SyncUp(ctx, workHome(), nil, "work"))
	pending, err = f.engine.Queue().List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	f.srv.Fail(http.MethodPut, 0)
	require.NoError(t, f.engine.SyncUp(ctx, workHome(), nil, "work"))

	pending, err = f.engine.Queue().List(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestSyncUploadCurrent(t *testing.T) {
	f := newFixture(t, "dev1")
	ctx := context.Background()
	require.NoError(t, f.st.SaveCurrentSceneID(ctx, "work"))
	f.register(t)
	require.NoError(t, f.st.SaveBundle(ctx, domain.Bundle{Bookmarks: workHome()}))

	require.NoError(t, f.engine.SyncUploadCurrent(ctx))
	require.Equal(t, []string{"A", "B"}, ids(f.remoteScene(t, "work").Bookmarks))
}

func TestDeleteScene(t *testing.T) {
	f := newFixture(t, "dev1")
	f.register(t)
	ctx := context.Background()

	require.NoError(t, f.engine.SyncUp(ctx, workHome(), nil, "work"))
	require.NoError(t, f.engine.DeleteScene(ctx, "work"))
	require.Empty(t, f.remoteScene(t, "work").Bookmarks)

	require.ErrorIs(t, f.engine.DeleteScene(ctx, domain.DefaultSceneID), domain.ErrDefaultScene)
	require.ErrorIs(t, f.engine.DeleteScene(ctx, ""), domain.ErrSceneNotFound)
}

func TestSyncSerializedPerDevice(t *testing.T) {
	f := newFixture(t, "dev1")
	dev := f.register(t)

	release, err := f.engine.guard.Acquire(context.Background(), dev.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = f.engine.SyncDown(ctx, "work")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	require.NoError(t, f.engine.SyncDown(context.Background(), "work"))
}
