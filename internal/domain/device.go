package domain

import (
	"strings"
	"time"
)

// UnknownDeviceName is the placeholder used when a readable device name
// could not be derived from the platform.
const UnknownDeviceName = "Unknown Device"

// Device is one installation of the client.
type Device struct {
	// ID is generated once per install and never changes.
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// IsUnknownDevice reports whether d has no usable display name.
func IsUnknownDevice(d Device) bool {
	name := strings.TrimSpace(d.Name)
	return name == "" || name == UnknownDeviceName
}

// ContainsDevice reports whether id is present in devices.
func ContainsDevice(devices []Device, id string) bool {
	return IndexDevice(devices, id) >= 0
}

// IndexDevice returns the position of id in devices, or -1.
func IndexDevice(devices []Device, id string) int {
	for i, d := range devices {
		if d.ID == id {
			return i
		}
	}
	return -1
}
