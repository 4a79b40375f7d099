// Package store implements the local persistent store: whole-value JSON
// records keyed by name, atomic at single-key granularity.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// Backend is the raw key-value storage behind Store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// Local is the typed view of the store consumed by the sync components.
type Local interface {
	GetBundle(ctx context.Context) (domain.Bundle, error)
	SaveBundle(ctx context.Context, bundle domain.Bundle) error

	GetConfig(ctx context.Context) (domain.RemoteConfig, error)
	SaveConfig(ctx context.Context, cfg domain.RemoteConfig) error

	GetSyncStatus(ctx context.Context) (domain.SyncStatus, error)
	SaveSyncStatus(ctx context.Context, status domain.SyncStatus) error

	GetPendingChanges(ctx context.Context) ([]domain.PendingChange, error)
	SavePendingChanges(ctx context.Context, changes []domain.PendingChange) error

	GetDeviceInfo(ctx context.Context) (*domain.Device, error)
	SaveDeviceInfo(ctx context.Context, device domain.Device) error

	GetDevices(ctx context.Context) ([]domain.Device, error)
	SaveDevices(ctx context.Context, devices []domain.Device) error

	GetSettings(ctx context.Context) (json.RawMessage, error)
	SaveSettings(ctx context.Context, settings json.RawMessage) error

	GetScenes(ctx context.Context) ([]domain.Scene, error)
	SaveScenes(ctx context.Context, scenes []domain.Scene) error

	GetCurrentSceneID(ctx context.Context) (string, error)
	SaveCurrentSceneID(ctx context.Context, id string) error

	ClearSyncedState(ctx context.Context) error
}

// Store maps the typed records onto a Backend.
type Store struct {
	backend Backend
}

var _ Local = (*Store)(nil)

// New creates a store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// GetBundle returns every stored bookmark and folder, across all scenes.
func (s *Store) GetBundle(ctx context.Context) (domain.Bundle, error) {
	var bundle domain.Bundle
	if _, err := s.getJSON(ctx, KeyBookmarks, &bundle); err != nil {
		return domain.Bundle{}, err
	}
	if bundle.Bookmarks == nil {
		bundle.Bookmarks = []domain.Bookmark{}
	}
	if bundle.Folders == nil {
		bundle.Folders = []string{}
	}
	return bundle, nil
}

func (s *Store) SaveBundle(ctx context.Context, bundle domain.Bundle) error {
	return s.setJSON(ctx, KeyBookmarks, bundle)
}

func (s *Store) GetConfig(ctx context.Context) (domain.RemoteConfig, error) {
	var cfg domain.RemoteConfig
	_, err := s.getJSON(ctx, KeyConfig, &cfg)
	return cfg, err
}

func (s *Store) SaveConfig(ctx context.Context, cfg domain.RemoteConfig) error {
	return s.setJSON(ctx, KeyConfig, cfg)
}

// GetSyncStatus returns the idle status when nothing was recorded yet.
func (s *Store) GetSyncStatus(ctx context.Context) (domain.SyncStatus, error) {
	var status domain.SyncStatus
	ok, err := s.getJSON(ctx, KeySyncStatus, &status)
	if err != nil {
		return domain.SyncStatus{}, err
	}
	if !ok {
		return domain.IdleStatus(), nil
	}
	return status, nil
}

func (s *Store) SaveSyncStatus(ctx context.Context, status domain.SyncStatus) error {
	return s.setJSON(ctx, KeySyncStatus, status)
}

func (s *Store) GetPendingChanges(ctx context.Context) ([]domain.PendingChange, error) {
	changes := []domain.PendingChange{}
	if _, err := s.getJSON(ctx, KeyPendingChanges, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *Store) SavePendingChanges(ctx context.Context, changes []domain.PendingChange) error {
	if changes == nil {
		changes = []domain.PendingChange{}
	}
	return s.setJSON(ctx, KeyPendingChanges, changes)
}

// GetDeviceInfo returns nil when this install has no identity yet.
func (s *Store) GetDeviceInfo(ctx context.Context) (*domain.Device, error) {
	var device domain.Device
	ok, err := s.getJSON(ctx, KeyDeviceInfo, &device)
	if err != nil || !ok {
		return nil, err
	}
	return &device, nil
}

func (s *Store) SaveDeviceInfo(ctx context.Context, device domain.Device) error {
	return s.setJSON(ctx, KeyDeviceInfo, device)
}

func (s *Store) GetDevices(ctx context.Context) ([]domain.Device, error) {
	devices := []domain.Device{}
	if _, err := s.getJSON(ctx, KeyDeviceList, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Store) SaveDevices(ctx context.Context, devices []domain.Device) error {
	if devices == nil {
		devices = []domain.Device{}
	}
	return s.setJSON(ctx, KeyDeviceList, devices)
}

// GetSettings returns the opaque generic settings blob, nil when unset.
func (s *Store) GetSettings(ctx context.Context) (json.RawMessage, error) {
	data, ok, err := s.backend.Get(ctx, KeySettings)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", KeySettings, err)
	}
	if !ok {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

func (s *Store) SaveSettings(ctx context.Context, settings json.RawMessage) error {
	if !json.Valid(settings) {
		return fmt.Errorf("failed to save %s: invalid json", KeySettings)
	}
	if err := s.backend.Set(ctx, KeySettings, settings); err != nil {
		return fmt.Errorf("failed to save %s: %w", KeySettings, err)
	}
	return nil
}

func (s *Store) GetScenes(ctx context.Context) ([]domain.Scene, error) {
	scenes := []domain.Scene{}
	if _, err := s.getJSON(ctx, KeyScenes, &scenes); err != nil {
		return nil, err
	}
	return scenes, nil
}

func (s *Store) SaveScenes(ctx context.Context, scenes []domain.Scene) error {
	if scenes == nil {
		scenes = []domain.Scene{}
	}
	return s.setJSON(ctx, KeyScenes, scenes)
}

func (s *Store) GetCurrentSceneID(ctx context.Context) (string, error) {
	var id string
	_, err := s.getJSON(ctx, KeyCurrentScene, &id)
	return id, err
}

func (s *Store) SaveCurrentSceneID(ctx context.Context, id string) error {
	return s.setJSON(ctx, KeyCurrentScene, id)
}

// ClearSyncedState wipes bookmarks, folders, scenes, the device roster,
// generic settings and pending changes.
func (s *Store) ClearSyncedState(ctx context.Context) error {
	if err := s.backend.Delete(ctx, syncedKeys...); err != nil {
		return fmt.Errorf("failed to clear synced state: %w", err)
	}
	return nil
}
