package syncer

import (
	"context"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/store"
)

// EnsureDefaultScene creates the default scene when no scene exists yet.
func EnsureDefaultScene(ctx context.Context, st store.Local) ([]domain.Scene, error) {
	scenes, err := st.GetScenes(ctx)
	if err != nil {
		return nil, err
	}
	if len(scenes) > 0 {
		return scenes, nil
	}

	scenes = []domain.Scene{domain.DefaultScene()}
	if err := st.SaveScenes(ctx, scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

// defaultSceneOf picks the flagged default scene, then the one with the
// default id, then the first scene.
func defaultSceneOf(scenes []domain.Scene) string {
	for _, s := range scenes {
		if s.IsDefault {
			return s.ID
		}
	}
	if _, ok := domain.FindScene(scenes, domain.DefaultSceneID); ok {
		return domain.DefaultSceneID
	}
	return scenes[0].ID
}

// ResolveCurrentScene returns the current-scene pointer when it names an
// existing scene, otherwise the default scene, which is then persisted as
// the new pointer.
func ResolveCurrentScene(ctx context.Context, st store.Local) (string, error) {
	scenes, err := EnsureDefaultScene(ctx, st)
	if err != nil {
		return "", err
	}

	current, err := st.GetCurrentSceneID(ctx)
	if err != nil {
		return "", err
	}
	if _, ok := domain.FindScene(scenes, current); ok {
		return current, nil
	}

	fallback := defaultSceneOf(scenes)
	if err := st.SaveCurrentSceneID(ctx, fallback); err != nil {
		return "", err
	}
	return fallback, nil
}
