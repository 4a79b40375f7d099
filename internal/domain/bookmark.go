package domain

import "time"

// DefaultSceneID is the id of the scene that always exists and cannot be
// renamed or deleted.
const DefaultSceneID = "default"

// Bookmark is a single saved link owned by exactly one scene.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is unique within the whole local store.
	ID string `json:"id"`

	// Scene is the id of the scene that owns this bookmark.
	Scene string `json:"scene"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	Title string `json:"title"`
	URL   string `json:"url"`

	// Folder is a normalized forward-slash path, empty for the root.
	// Example: dev/go/tools
	Folder string `json:"folder,omitempty"`

	Tags        []string `json:"tags"`
	Description string   `json:"description,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Starred     bool     `json:"starred"`
	Favicon     string   `json:"favicon,omitempty"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SceneOrDefault returns the owning scene, attributing unscoped bookmarks
// to the default scene.
func (b Bookmark) SceneOrDefault() string {
	if b.Scene == "" {
		return DefaultSceneID
	}
	return b.Scene
}

// Bundle is the unit stored locally under the bookmarks key and remotely
// once per scene.
type Bundle struct {
	Bookmarks []Bookmark `json:"bookmarks"`
	Folders   []string   `json:"folders"`
}

// Scene is a named, independently synchronized partition of the bookmarks.
type Scene struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// DefaultScene returns the scene created when none exist yet.
func DefaultScene() Scene {
	return Scene{ID: DefaultSceneID, Name: "Default", IsDefault: true}
}

// FindScene reports whether id names one of scenes.
func FindScene(scenes []Scene, id string) (Scene, bool) {
	for _, s := range scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}
