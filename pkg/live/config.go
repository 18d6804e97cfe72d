package live

import (
	"time"
)

const (
	// DefaultEndpoint is the Gemini Live websocket endpoint.
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the native-audio Live model.
	DefaultModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"

	// DefaultVoice is the prebuilt voice used when none is configured.
	DefaultVoice = "Aoede"
)

// ToolDeclaration describes one function the model may invoke during the
// conversation. Parameters is a JSON schema object.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Config holds everything needed to build a connection.
type Config struct {
	// APIKey authenticates against the Live endpoint. Required.
	APIKey string

	// Model overrides DefaultModel.
	Model string

	// Voice selects the prebuilt voice (e.g. "Aoede", "Puck").
	Voice string

	// SystemPrompt is the system instruction sent on every connection.
	SystemPrompt string

	// Tools is the enabled tool subset declared to the model.
	Tools []ToolDeclaration

	// Endpoint overrides DefaultEndpoint. Used by tests.
	Endpoint string

	// HandshakeTimeout bounds the websocket dial. Default 10s.
	HandshakeTimeout time.Duration
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return DefaultEndpoint
}

func (c *Config) model() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

func (c *Config) voice() string {
	if c.Voice != "" {
		return c.Voice
	}
	return DefaultVoice
}

func (c *Config) handshakeTimeout() time.Duration {
	if c.HandshakeTimeout > 0 {
		return c.HandshakeTimeout
	}
	return 10 * time.Second
}
