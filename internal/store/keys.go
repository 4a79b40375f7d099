package store

const (
	// KeyPrefix namespaces every record written by marksync.
	KeyPrefix = "marksync:"

	KeyBookmarks      = KeyPrefix + "bookmarks"
	KeyConfig         = KeyPrefix + "config"
	KeySyncStatus     = KeyPrefix + "sync-status"
	KeyPendingChanges = KeyPrefix + "pending-changes"
	KeyDeviceInfo     = KeyPrefix + "device-info"
	KeyDeviceList     = KeyPrefix + "device-list"
	KeySettings       = KeyPrefix + "settings"
	KeyScenes         = KeyPrefix + "scenes"
	KeyCurrentScene   = KeyPrefix + "current-scene-id"
)

// syncedKeys are wiped when the remote roster no longer recognizes this
// device. Device identity, remote config and status survive.
var syncedKeys = []string{
	KeyBookmarks,
	KeyDeviceList,
	KeySettings,
	KeyScenes,
	KeyCurrentScene,
	KeyPendingChanges,
}
