package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// SyncState is the coarse state exposed to UI layers.
type SyncState string

const (
	StatusIdle    SyncState = "idle"
	StatusSyncing SyncState = "syncing"
	StatusSuccess SyncState = "success"
	StatusError   SyncState = "error"
)

// SyncStatus is a single record overwritten on every transition.
type SyncStatus struct {
	Status   SyncState  `json:"status"`
	LastSync *time.Time `json:"lastSync"`
	Error    string     `json:"error,omitempty"`
}

// IdleStatus is the status reported before any sync has run.
func IdleStatus() SyncStatus {
	return SyncStatus{Status: StatusIdle}
}

// PendingChangeUpload is the only kind of pending change recorded today.
const PendingChangeUpload = "upload"

// PendingChange is an upload payload kept after a failed push.
type PendingChange struct {
	Type      string     `json:"type"`
	Bookmarks []Bookmark `json:"bookmarks"`
	Folders   []string   `json:"folders"`
	Timestamp time.Time  `json:"timestamp"`
}

// RemoteConfig locates the shared remote store. It is never synchronized.
type RemoteConfig struct {
	ServerURL string `json:"serverUrl" yaml:"serverUrl"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	Path      string `json:"path" yaml:"path"`

	// SyncInterval is the polling period in minutes.
	SyncInterval int `json:"syncInterval" yaml:"syncInterval"`
}

// IsConfigured reports whether a remote endpoint has been set.
func (c RemoteConfig) IsConfigured() bool {
	return c.ServerURL != ""
}

// RedactedPassword replaces the password in configs handed to UI callers.
const RedactedPassword = "***REDACTED***"

// Redacted returns a copy safe to hand to UI callers.
func (c RemoteConfig) Redacted() RemoteConfig {
	if c.Password != "" {
		c.Password = RedactedPassword
	}
	return c
}

// Validate rejects configs the remote client could not use.
func (c RemoteConfig) Validate() error {
	if c.SyncInterval < 0 {
		return fmt.Errorf("%w: syncInterval must not be negative", ErrInvalidConfig)
	}
	if c.ServerURL == "" {
		return nil
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: serverUrl must be an absolute http(s) URL", ErrInvalidConfig)
	}
	return nil
}

// Interval converts SyncInterval to a duration, zero when unset.
func (c RemoteConfig) Interval() time.Duration {
	if c.SyncInterval <= 0 {
		return 0
	}
	return time.Duration(c.SyncInterval) * time.Minute
}

// RemoteSettings is the shared settings resource: device roster, scenes and
// generic settings.
type RemoteSettings struct {
	Devices        []Device        `json:"devices"`
	DeviceInfo     *Device         `json:"deviceInfo,omitempty"`
	Settings       json.RawMessage `json:"settings,omitempty"`
	Scenes         []Scene         `json:"scenes"`
	CurrentSceneID string          `json:"currentSceneId,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// EventBookmarksUpdated is broadcast after a successful download.
const EventBookmarksUpdated = "bookmarksUpdated"

// Event is a best-effort notification to listening UI layers.
type Event struct {
	Type    string    `json:"type"`
	SceneID string    `json:"sceneId,omitempty"`
	At      time.Time `json:"at"`
}
