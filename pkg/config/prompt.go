package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/teslashibe/reachy-companion/internal/log"
)

// DefaultSystemPrompt is used when the profile has no instructions file.
const DefaultSystemPrompt = "You are Reachy Mini, a friendly robot companion. Be helpful and concise."

// SystemPrompt loads profiles/<profile>/instructions.txt, falling back
// to DefaultSystemPrompt when the file is missing.
func (p PromptConfig) SystemPrompt() string {
	path := filepath.Join(p.ProfilesDir, p.Profile, "instructions.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("profile instructions not found, using default", "path", path)
		return DefaultSystemPrompt
	}
	text := strings.TrimSpace(string(data))
	log.Info("loaded system prompt", "path", path, "chars", len(text))
	return text
}

// EnabledTools loads tool names from profiles/<profile>/tools.txt, one
// per line, ignoring blanks and # comments. A missing file enables the
// robot movement tools.
func (p PromptConfig) EnabledTools() []string {
	path := filepath.Join(p.ProfilesDir, p.Profile, "tools.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("profile tools not found, using defaults", "path", path)
		return []string{"robot_expression", "robot_look_at"}
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}
