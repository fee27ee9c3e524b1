package cli

import (
	"context"
	"errors"

	"github.com/theirongolddev/freightdash/internal/config"
	"github.com/theirongolddev/freightdash/internal/freightapi"
	"github.com/theirongolddev/freightdash/internal/store"
)

// ErrorMessage turns a report load error into the one-line message shown
// to the user.
func ErrorMessage(err error) string {
	var se *freightapi.StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, freightapi.ErrNoToken):
		return "No token found"
	case errors.Is(err, freightapi.ErrUnauthorized):
		return "Token expired or invalid"
	case errors.Is(err, freightapi.ErrRateLimited):
		return "Rate limited, try again shortly"
	case errors.As(err, &se):
		return "Network response was not ok: " + se.Status
	case errors.Is(err, store.ErrNotCached):
		return "No cached report for this selection"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	default:
		return err.Error()
	}
}

// ErrorHint suggests how to fix err, or returns "" when there is nothing to add.
func ErrorHint(err error) string {
	switch {
	case errors.Is(err, freightapi.ErrNoToken), errors.Is(err, freightapi.ErrUnauthorized):
		return "Run `freightdash setup` or set " + config.TokenEnv
	case errors.Is(err, store.ErrNotCached):
		return "Fetch it once online, or drop --offline"
	default:
		return ""
	}
}
