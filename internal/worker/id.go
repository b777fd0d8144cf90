package worker

import (
	"github.com/google/uuid"
)

// NewID returns configured when set, otherwise "Worker-" followed by the
// first eight characters of a random UUID.
func NewID(configured string) string {
	if configured != "" {
		return configured
	}
	return "Worker-" + uuid.NewString()[:8]
}
