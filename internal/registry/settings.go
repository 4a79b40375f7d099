package registry

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// PullSettings mirrors the remote settings resource locally: device roster,
// scenes, current scene and generic settings. A missing resource is a no-op.
// The remote deviceInfo belongs to whichever device pushed last and is
// never copied over the local identity.
func (r *Registry) PullSettings(ctx context.Context) error {
	remote, err := r.remote.ReadSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to pull settings: %w", err)
	}
	if remote == nil {
		r.logger.Debug("no remote settings yet")
		return nil
	}
	return r.applySettings(ctx, remote)
}

func (r *Registry) applySettings(ctx context.Context, remote *domain.RemoteSettings) error {
	if err := r.store.SaveDevices(ctx, remote.Devices); err != nil {
		return err
	}

	if len(remote.Scenes) > 0 {
		if err := r.store.SaveScenes(ctx, remote.Scenes); err != nil {
			return err
		}
		if _, ok := domain.FindScene(remote.Scenes, remote.CurrentSceneID); ok {
			if err := r.store.SaveCurrentSceneID(ctx, remote.CurrentSceneID); err != nil {
				return err
			}
		}
	}

	if len(remote.Settings) > 0 && string(remote.Settings) != "null" {
		if err := r.store.SaveSettings(ctx, remote.Settings); err != nil {
			return err
		}
	}

	r.logger.Debug("pulled remote settings",
		logger.Int("devices", len(remote.Devices)),
		logger.Int("scenes", len(remote.Scenes)))
	return nil
}

// PushSettings writes the local devices, device info, scenes, current scene
// and generic settings to the remote settings resource.
func (r *Registry) PushSettings(ctx context.Context) error {
	return r.pushSettings(ctx, nil)
}

// pushSettings pushes with info as the device info, or the stored one when
// info is nil.
func (r *Registry) pushSettings(ctx context.Context, info *domain.Device) error {
	devices, err := r.store.GetDevices(ctx)
	if err != nil {
		return err
	}
	if info == nil {
		if info, err = r.store.GetDeviceInfo(ctx); err != nil {
			return err
		}
	}
	scenes, err := r.store.GetScenes(ctx)
	if err != nil {
		return err
	}
	current, err := r.store.GetCurrentSceneID(ctx)
	if err != nil {
		return err
	}
	settings, err := r.store.GetSettings(ctx)
	if err != nil {
		return err
	}

	payload := domain.RemoteSettings{
		Devices:        devices,
		DeviceInfo:     info,
		Settings:       settings,
		Scenes:         scenes,
		CurrentSceneID: current,
		UpdatedAt:      r.now().UTC(),
	}
	if err := r.remote.WriteSettings(ctx, payload); err != nil {
		return fmt.Errorf("failed to push settings: %w", err)
	}

	r.logger.Debug("pushed settings", logger.Int("devices", len(devices)))
	return nil
}
