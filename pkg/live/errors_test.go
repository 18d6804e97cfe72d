package live

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"missing api key sentinel", ErrMissingAPIKey, true},
		{"invalid config sentinel", ErrInvalidConfig, true},
		{"wrapped config error", fmt.Errorf("live: %w", ErrInvalidConfig), true},
		{"http 401", errors.New("live: connect failed: 401 Unauthorized"), true},
		{"http 403", errors.New("live: connect failed: 403 Forbidden"), true},
		{"api key invalid", errors.New("API key not valid. Please pass a valid API key"), true},
		{"permission denied", errors.New("rpc error: PERMISSION_DENIED"), true},
		{"unauthenticated", errors.New("UNAUTHENTICATED: request not authorized"), true},
		{"quota exhausted", errors.New("quota exceeded for this project"), true},
		{"not supported", errors.New("model not supported for live"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), false},
		{"unexpected eof", errors.New("websocket: close 1006 (abnormal closure): unexpected EOF"), false},
		{"timeout", errors.New("i/o timeout"), false},
		{"dns failure", errors.New("lookup generativelanguage.googleapis.com: no such host"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
