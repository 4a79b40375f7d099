// Package commands is the request/response boundary used by UI callers.
// Every inbound command maps to one method with a typed request.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/registry"
	"github.com/MrSnakeDoc/marksync/internal/store"
	"github.com/MrSnakeDoc/marksync/internal/syncer"
	"github.com/MrSnakeDoc/marksync/internal/webdav"
)

// ErrInvalidRequest marks a request rejected before any work was done.
var ErrInvalidRequest = errors.New("invalid request")

type SyncRequest struct {
	SceneID string `json:"sceneId,omitempty"`
}

type SyncToCloudRequest struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Folders   []string          `json:"folders"`
	SceneID   string            `json:"sceneId,omitempty"`
}

type SaveDevicesRequest struct {
	Devices []domain.Device `json:"devices"`
}

// Response is the envelope every command answers with.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(data any) Response { return Response{Success: true, Data: data} }

func Failed(err error) Response { return Response{Success: false, Error: err.Error()} }

// Service wires the commands to the sync components.
type Service struct {
	store    store.Local
	engine   *syncer.Engine
	registry *registry.Registry
	remote   *webdav.Client
	logger   logger.Logger
}

func New(st store.Local, engine *syncer.Engine, reg *registry.Registry, remote *webdav.Client, log logger.Logger) *Service {
	return &Service{
		store:    st,
		engine:   engine,
		registry: reg,
		remote:   remote,
		logger:   log,
	}
}

// Sync downloads one scene, the current one when SceneID is empty.
func (s *Service) Sync(ctx context.Context, req SyncRequest) error {
	return s.engine.SyncDown(ctx, req.SceneID)
}

// SyncToCloud uploads the supplied bookmarks.
func (s *Service) SyncToCloud(ctx context.Context, req SyncToCloudRequest) error {
	return s.engine.SyncUp(ctx, req.Bookmarks, req.Folders, req.SceneID)
}

// SyncUpload uploads the current scene from the local store.
func (s *Service) SyncUpload(ctx context.Context) error {
	return s.engine.SyncUploadCurrent(ctx)
}

// RegisterDevice registers this device and reconciles it with the remote
// roster.
func (s *Service) RegisterDevice(ctx context.Context) (domain.Device, error) {
	if _, err := s.registry.EnsureRegistered(ctx); err != nil {
		return domain.Device{}, err
	}
	return s.registry.EnsureInCloud(ctx)
}

// SyncSettings pushes the local settings bundle.
func (s *Service) SyncSettings(ctx context.Context) error {
	return s.registry.PushSettings(ctx)
}

// SyncSettingsFromCloud pulls the remote settings bundle.
func (s *Service) SyncSettingsFromCloud(ctx context.Context) error {
	return s.registry.PullSettings(ctx)
}

func (s *Service) GetSyncStatus(ctx context.Context) (domain.SyncStatus, error) {
	return s.engine.Status().Current(ctx)
}

// GetConfig returns the remote config with the password redacted.
func (s *Service) GetConfig(ctx context.Context) (domain.RemoteConfig, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return domain.RemoteConfig{}, err
	}
	return cfg.Redacted(), nil
}

// SaveConfig validates and stores cfg. A redacted password keeps the
// stored one, so a config read from GetConfig can be saved back.
func (s *Service) SaveConfig(ctx context.Context, cfg domain.RemoteConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Password == domain.RedactedPassword {
		prev, err := s.store.GetConfig(ctx)
		if err != nil {
			return err
		}
		cfg.Password = prev.Password
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info("remote config saved",
		logger.String("server_url", cfg.ServerURL),
		logger.Int("sync_interval_min", cfg.SyncInterval))
	return nil
}

// TestConnection checks the stored config against the remote store.
func (s *Service) TestConnection(ctx context.Context) error {
	return s.remote.TestConnection(ctx)
}

func (s *Service) GetDevices(ctx context.Context) ([]domain.Device, error) {
	return s.registry.Devices(ctx)
}

// SaveDevices replaces the roster. Ids must be present and unique.
func (s *Service) SaveDevices(ctx context.Context, req SaveDevicesRequest) error {
	seen := make(map[string]bool, len(req.Devices))
	for _, d := range req.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: device id is required", ErrInvalidRequest)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate device id %q", ErrInvalidRequest, d.ID)
		}
		seen[d.ID] = true
	}
	devices := req.Devices
	if devices == nil {
		devices = []domain.Device{}
	}
	return s.registry.SaveDevices(ctx, devices)
}

func (s *Service) GetPendingChanges(ctx context.Context) ([]domain.PendingChange, error) {
	return s.engine.Queue().List(ctx)
}

// DeleteSceneBookmarks removes a scene's remote bookmarks.
func (s *Service) DeleteSceneBookmarks(ctx context.Context, sceneID string) error {
	return s.engine.DeleteScene(ctx, sceneID)
}
