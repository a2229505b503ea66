// Package settings persists the client's connection preferences as a
// small JSON file. Loading is forgiving: any failure falls back to
// defaults so a corrupt or missing file never blocks startup.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	settingsDir  = ".config/cybox-chat"
	settingsFile = "settings.json"
)

// Settings holds the persisted client preferences.
type Settings struct {
	ServerURL string `json:"server_url"`
	Username  string `json:"username"`
}

// Default returns the out-of-the-box settings.
func Default() Settings {
	return Settings{ServerURL: "ws://127.0.0.1:3001"}
}

// DefaultPath resolves the per-user settings location. Without a home
// directory it falls back to a dotfile in the working directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cybox-chat-settings.json"
	}
	return filepath.Join(home, settingsDir, settingsFile)
}

// Load reads settings from path. On any read or parse failure it returns
// Default() along with the cause; callers may ignore the error and keep
// going.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Default(), err
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return Default(), fmt.Errorf("parse settings: %w", err)
	}
	if s.ServerURL == "" {
		s.ServerURL = Default().ServerURL
	}
	return s, nil
}

// Save writes settings to path, creating parent directories as needed.
func Save(path string, s Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}
