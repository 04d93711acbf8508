// Package config provides configuration helpers for httpcam commands.
package config

import (
	"os"
	"strconv"
)

// Default server configuration.
const (
	DefaultPort = "8080"
	DefaultAddr = "0.0.0.0:" + DefaultPort
)

// ListenAddr returns the listen address from HTTPCAM_ADDR.
// Falls back to the provided default if not set.
func ListenAddr(defaultAddr string) string {
	if addr := os.Getenv("HTTPCAM_ADDR"); addr != "" {
		return addr
	}
	return defaultAddr
}

// ServerURL returns the server base URL from HTTPCAM_URL.
// Falls back to the provided default if not set.
func ServerURL(defaultURL string) string {
	if url := os.Getenv("HTTPCAM_URL"); url != "" {
		return url
	}
	return defaultURL
}

// CameraIndex returns the camera index from HTTPCAM_CAMERA.
// Falls back to the provided default if not set or unparsable.
func CameraIndex(defaultIndex int) int {
	if v := os.Getenv("HTTPCAM_CAMERA"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultIndex
}

// OutputDir returns the archive output directory from HTTPCAM_OUTPUT.
// Falls back to the provided default if not set.
func OutputDir(defaultDir string) string {
	if dir := os.Getenv("HTTPCAM_OUTPUT"); dir != "" {
		return dir
	}
	return defaultDir
}
