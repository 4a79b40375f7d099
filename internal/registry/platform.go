package registry

import (
	"fmt"
	"runtime"
)

var osNames = map[string]string{
	"linux":   "Linux",
	"darwin":  "macOS",
	"windows": "Windows",
	"freebsd": "FreeBSD",
	"openbsd": "OpenBSD",
	"android": "Android",
	"ios":     "iOS",
}

var archNames = map[string]string{
	"amd64": "x64",
	"386":   "x86",
	"arm64": "arm64",
	"arm":   "arm",
}

// PlatformName derives a readable device name such as "Linux / x64". It
// returns the empty string when the platform is not recognized.
func PlatformName() string {
	return platformName(runtime.GOOS, runtime.GOARCH)
}

func platformName(goos, goarch string) string {
	osName, ok := osNames[goos]
	if !ok {
		return ""
	}
	arch, ok := archNames[goarch]
	if !ok {
		arch = goarch
	}
	return fmt.Sprintf("%s / %s", osName, arch)
}
