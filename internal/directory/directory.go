// Package directory is the port to the external user directory. The core
// only needs display names, and only best-effort: callers fall back to a
// synthesized label when a lookup fails.
package directory

import (
	"context"
	"fmt"
)

// Directory resolves a user id to a display name.
type Directory interface {
	DisplayName(ctx context.Context, userID int64) (string, error)
}

// FallbackName is the label used when the directory cannot be reached.
func FallbackName(userID int64) string {
	return fmt.Sprintf("User %d", userID)
}

// Resolve returns the directory name for userID, or the fallback label when
// the lookup fails or d is nil. It never returns an error: directory outages
// degrade responses, they do not fail requests.
func Resolve(ctx context.Context, d Directory, userID int64) string {
	if d == nil {
		return FallbackName(userID)
	}
	name, err := d.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return FallbackName(userID)
	}
	return name
}
