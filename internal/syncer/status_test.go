package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/store"
	"github.com/MrSnakeDoc/marksync/internal/store/memory"
)

func TestStatusTrackerKeepsLastSync(t *testing.T) {
	ctx := context.Background()
	st := store.New(memory.New())
	now := fixedNow
	tr := NewStatusTracker(st, logger.New("error", false), func() time.Time { return now })

	cur, err := tr.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.IdleStatus(), cur)

	require.NoError(t, tr.Begin(ctx))
	require.NoError(t, tr.Succeed(ctx))

	now = fixedNow.Add(time.Hour)
	require.NoError(t, tr.Begin(ctx))
	tr.Fail(ctx, errors.New("boom"))

	cur, err = tr.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.StatusError, cur.Status)
	require.Equal(t, "boom", cur.Error)
	require.NotNil(t, cur.LastSync)
	require.True(t, cur.LastSync.Equal(fixedNow))

	require.NoError(t, tr.Begin(ctx))
	cur, err = tr.Current(ctx)
	require.NoError(t, err)
	require.Empty(t, cur.Error)
}

func TestPendingQueue(t *testing.T) {
	ctx := context.Background()
	q := NewPendingQueue(store.New(memory.New()), func() time.Time { return fixedNow })

	require.NoError(t, q.Append(ctx, []domain.Bookmark{bm("A", "work", "")}, nil))
	require.NoError(t, q.Append(ctx, nil, []string{"Dev"}))

	list, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "A", list[0].Bookmarks[0].ID)
	require.True(t, list[1].Timestamp.Equal(fixedNow))

	require.NoError(t, q.Clear(ctx))
	list, err = q.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestResolveCurrentScene(t *testing.T) {
	ctx := context.Background()

	t.Run("creates default scene", func(t *testing.T) {
		st := store.New(memory.New())
		id, err := ResolveCurrentScene(ctx, st)
		require.NoError(t, err)
		require.Equal(t, domain.DefaultSceneID, id)

		scenes, err := st.GetScenes(ctx)
		require.NoError(t, err)
		require.Len(t, scenes, 1)
	})

	t.Run("stale pointer falls back", func(t *testing.T) {
		st := store.New(memory.New())
		require.NoError(t, st.SaveScenes(ctx, []domain.Scene{{ID: "work"}, {ID: "home", IsDefault: true}}))
		require.NoError(t, st.SaveCurrentSceneID(ctx, "gone"))

		id, err := ResolveCurrentScene(ctx, st)
		require.NoError(t, err)
		require.Equal(t, "home", id)

		stored, err := st.GetCurrentSceneID(ctx)
		require.NoError(t, err)
		require.Equal(t, "home", stored)
	})

	t.Run("valid pointer kept", func(t *testing.T) {
		st := store.New(memory.New())
		require.NoError(t, st.SaveScenes(ctx, []domain.Scene{domain.DefaultScene(), {ID: "work"}}))
		require.NoError(t, st.SaveCurrentSceneID(ctx, "work"))

		id, err := ResolveCurrentScene(ctx, st)
		require.NoError(t, err)
		require.Equal(t, "work", id)
	})
}
