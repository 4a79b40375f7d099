// Package webdav is a thin client for the shared remote store. It reads the
// remote config on every call, so config changes apply without a restart.
// Retries live with the callers, not here.
package webdav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/studio-b12/gowebdav"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/utils"
)

// ConfigSource provides the current remote config.
type ConfigSource interface {
	GetConfig(ctx context.Context) (domain.RemoteConfig, error)
}

// Client speaks the WebDAV verbs needed to mirror scenes and settings.
// Timeouts come from the http.Client given to New.
type Client struct {
	config ConfigSource
	http   *http.Client
	logger logger.Logger

	mu      sync.Mutex
	dav     *gowebdav.Client
	davConf domain.RemoteConfig // config dav was built for
}

// New creates a client. A nil httpClient uses http.DefaultClient.
func New(config ConfigSource, httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		config: config,
		http:   httpClient,
		logger: log,
	}
}

// session returns the current config and a gowebdav client for it. The
// client is rebuilt only when the config changes, so the negotiated basic
// auth is reused between calls.
func (c *Client) session(ctx context.Context) (*gowebdav.Client, domain.RemoteConfig, error) {
	cfg, err := c.config.GetConfig(ctx)
	if err != nil {
		return nil, domain.RemoteConfig{}, fmt.Errorf("failed to load remote config: %w", err)
	}
	if !cfg.IsConfigured() {
		return nil, domain.RemoteConfig{}, domain.ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dav == nil || c.davConf.ServerURL != cfg.ServerURL ||
		c.davConf.Username != cfg.Username || c.davConf.Password != cfg.Password {
		dav := gowebdav.NewClient(cfg.ServerURL, cfg.Username, cfg.Password)
		if c.http.Transport != nil {
			dav.SetTransport(c.http.Transport)
		}
		if c.http.Timeout > 0 {
			dav.SetTimeout(c.http.Timeout)
		}
		c.dav = dav
		c.logger.Debug("webdav session created", logger.String("server_url", cfg.ServerURL))
	}
	c.davConf = cfg
	return c.dav, cfg, nil
}

// statusError maps a gowebdav failure to a StatusError when the server
// answered, and wraps transport failures as they are.
func statusError(method, resource string, err error) error {
	var se gowebdav.StatusError
	if errors.As(err, &se) {
		return &StatusError{Method: method, Resource: resource, StatusCode: se.Status}
	}
	return fmt.Errorf("webdav %s %s: %w", method, resource, err)
}

// TestConnection checks the server answers an authenticated request.
func (c *Client) TestConnection(ctx context.Context) error {
	dav, _, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := dav.Connect(); err != nil {
		return statusError(http.MethodOptions, "/", err)
	}
	return nil
}

// EnsureDirectory creates each segment of the base path. Collections that
// already exist are tolerated, so the call is idempotent.
func (c *Client) EnsureDirectory(ctx context.Context) error {
	dav, cfg, err := c.session(ctx)
	if err != nil {
		return err
	}
	return c.ensureDirectory(dav, cfg)
}

func (c *Client) ensureDirectory(dav *gowebdav.Client, cfg domain.RemoteConfig) error {
	dir := baseDir(cfg.Path)
	if dir == "/" {
		return nil
	}
	if err := dav.MkdirAll(dir, 0o755); err != nil {
		return statusError("MKCOL", dir, err)
	}
	return nil
}

// readResource returns nil, nil when the resource does not exist yet.
func (c *Client) readResource(ctx context.Context, name string) ([]byte, error) {
	dav, cfg, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	rc, err := dav.ReadStream(resourcePath(cfg.Path, name))
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, statusError(http.MethodGet, name, err)
	}
	defer utils.MustClose(rc)

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func (c *Client) writeResource(ctx context.Context, name string, data []byte) error {
	dav, cfg, err := c.session(ctx)
	if err != nil {
		return err
	}
	if err := c.ensureDirectory(dav, cfg); err != nil {
		return err
	}

	if err := dav.Write(resourcePath(cfg.Path, name), data, 0o644); err != nil {
		return statusError(http.MethodPut, name, err)
	}
	return nil
}

// ReadScopedResource fetches one scene's bookmarks. A scene never written
// yields an empty bundle.
func (c *Client) ReadScopedResource(ctx context.Context, sceneID string) (domain.Bundle, error) {
	data, err := c.readResource(ctx, SceneResource(sceneID))
	if err != nil {
		return domain.Bundle{}, err
	}

	var bundle domain.Bundle
	if len(data) > 0 {
		if err := json.Unmarshal(data, &bundle); err != nil {
			return domain.Bundle{}, fmt.Errorf("failed to decode scene %s: %w", sceneID, err)
		}
	}
	return bundle, nil
}

// WriteScopedResource replaces one scene's bookmarks.
func (c *Client) WriteScopedResource(ctx context.Context, sceneID string, bundle domain.Bundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("failed to encode scene %s: %w", sceneID, err)
	}
	return c.writeResource(ctx, SceneResource(sceneID), data)
}

// DeleteScopedResource removes one scene's bookmarks. Deleting a scene
// that was never written is not an error.
func (c *Client) DeleteScopedResource(ctx context.Context, sceneID string) error {
	dav, cfg, err := c.session(ctx)
	if err != nil {
		return err
	}

	name := SceneResource(sceneID)
	if err := dav.Remove(resourcePath(cfg.Path, name)); err != nil && !gowebdav.IsErrNotFound(err) {
		return statusError(http.MethodDelete, name, err)
	}
	return nil
}

// ReadSettings returns nil when no device has pushed settings yet.
func (c *Client) ReadSettings(ctx context.Context) (*domain.RemoteSettings, error) {
	data, err := c.readResource(ctx, SettingsResource)
	if err != nil || data == nil {
		return nil, err
	}

	var settings domain.RemoteSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

// WriteSettings replaces the shared settings resource.
func (c *Client) WriteSettings(ctx context.Context, settings domain.RemoteSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return c.writeResource(ctx, SettingsResource, data)
}
