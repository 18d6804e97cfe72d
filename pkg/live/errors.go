package live

import (
	"errors"
	"strings"
)

// Errors returned by the session.
var (
	// ErrMissingAPIKey means no credential was configured.
	ErrMissingAPIKey = errors.New("live: missing API key")

	// ErrInvalidConfig means the session configuration is unusable.
	ErrInvalidConfig = errors.New("live: invalid configuration")

	// ErrSessionClosed is returned by NextPlaybackChunk after Run ends.
	ErrSessionClosed = errors.New("live: session closed")
)

// permanentMarkers are message fragments that indicate a failure no retry
// will fix: bad or expired credentials, authorization refusals, exhausted
// quota, or an unsupported request.
var permanentMarkers = []string{
	"api key",
	"invalid credential",
	"expired credential",
	"unauthenticated",
	"unauthorized",
	"permission denied",
	"permission_denied",
	"401",
	"403",
	"quota",
	"not supported",
	"invalid argument",
}

// IsPermanent reports whether err should end the session instead of being
// retried. Configuration errors are always permanent; everything else is
// classified by message since the websocket layer flattens server errors
// into close reasons.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrInvalidConfig) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
