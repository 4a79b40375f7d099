package webdav

import (
	"net/url"
	"strings"
)

const (
	// SettingsResource holds devices, device info, scenes and generic settings.
	SettingsResource = "settings.json"

	sceneResourcePrefix = "bookmarks_"
	sceneResourceSuffix = ".json"
)

// SceneResource returns the name of the bookmark resource for one scene.
// The id is escaped so it always names a single file.
func SceneResource(sceneID string) string {
	return sceneResourcePrefix + url.PathEscape(sceneID) + sceneResourceSuffix
}

// baseDir turns the configured base path into "/a/b/", or "/" when empty.
func baseDir(p string) string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/") + "/"
}

// resourcePath is the path of name under the base directory, relative to
// the server URL.
func resourcePath(base, name string) string {
	return baseDir(base) + name
}
