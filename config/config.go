// Package config loads the launcher settings file. The file is YAML decoded
// through JSON tags, so either notation works.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// Settings drives resolution and download behavior.
type Settings struct {
	// GameDir is the root of the local game directory layout.
	GameDir string `json:"gameDir,omitempty"`
	// Concurrency bounds the download worker pool.
	Concurrency int `json:"concurrency,omitempty"`
	// MaxAttempts is the per-file download attempt budget.
	MaxAttempts int `json:"maxAttempts,omitempty"`
	// IgnoreFailures lets a sync finish despite permanently failed files.
	IgnoreFailures bool `json:"ignoreFailures,omitempty"`
	// ManifestURL overrides the version index endpoint.
	ManifestURL string `json:"manifestURL,omitempty"`
	// Features toggles the feature flags consulted by manifest rules.
	Features map[string]bool `json:"features,omitempty"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	gameDir := ".minecraft"
	if home, err := os.UserHomeDir(); err == nil {
		gameDir = filepath.Join(home, ".minecraft")
	}
	return Settings{
		GameDir:     gameDir,
		Concurrency: 16,
		MaxAttempts: 5,
	}
}

// Load reads a settings file and fills unset fields with defaults. A missing
// file yields the defaults.
func Load(path string) (Settings, error) {
	settings := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return Settings{}, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	settings.applyDefaults()
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

func (s *Settings) applyDefaults() {
	defaults := Default()
	if s.GameDir == "" {
		s.GameDir = defaults.GameDir
	}
	if s.Concurrency == 0 {
		s.Concurrency = defaults.Concurrency
	}
	if s.MaxAttempts == 0 {
		s.MaxAttempts = defaults.MaxAttempts
	}
}

// Validate rejects settings no component could act on.
func (s Settings) Validate() error {
	if s.GameDir == "" {
		return fmt.Errorf("gameDir must not be empty")
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", s.Concurrency)
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("maxAttempts must be positive, got %d", s.MaxAttempts)
	}
	return nil
}
