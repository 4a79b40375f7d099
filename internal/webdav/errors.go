package webdav

import (
	"errors"
	"fmt"
)

// StatusError is returned for any non-2xx response that is not a tolerated
// "not found" or "already exists".
type StatusError struct {
	Method     string
	Resource   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webdav %s %s failed with HTTP %d", e.Method, e.Resource, e.StatusCode)
}

// StatusCode extracts the HTTP status from err, 0 when err is not a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
