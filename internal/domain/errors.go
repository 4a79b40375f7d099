package domain

import "errors"

var (
	// configuration errors
	ErrNotConfigured = errors.New("remote store is not configured")
	ErrInvalidConfig = errors.New("invalid remote config")

	// authorization errors
	ErrUnauthorized = errors.New("device is not authorized to sync")

	// scene errors
	ErrSceneNotFound = errors.New("scene not found")
	ErrDefaultScene  = errors.New("default scene cannot be modified")
)
