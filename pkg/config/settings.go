package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all configuration options.
type Settings struct {
	// Storage locations
	DownloadDir  string `json:"download_dir"`
	StateDir     string `json:"state_dir"`
	DatabasePath string `json:"database_path"`

	// Download settings
	ImageWorkers   int `json:"image_workers"`
	ChapterWorkers int `json:"chapter_workers"`
	MaxRetries     int `json:"max_retries"`
	RetryBackoffMS int `json:"retry_backoff_ms"`
	TimeoutSeconds int `json:"timeout_seconds"`
	MinImageBytes  int `json:"min_image_bytes"`

	// Comment settings
	ExtractComments bool `json:"extract_comments"`
	MaxComments     int  `json:"max_comments"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	return &Settings{
		DownloadDir:  filepath.Join(homeDir, "Webtoons"),
		StateDir:     filepath.Join(homeDir, ".webtoons", "queue"),
		DatabasePath: filepath.Join(homeDir, ".webtoons", "webtoons.db"),

		ImageWorkers:   20,
		ChapterWorkers: 4,
		MaxRetries:     3,
		RetryBackoffMS: 1000,
		TimeoutSeconds: 30,
		MinImageBytes:  1024,

		ExtractComments: true,
		MaxComments:     100,
	}
}

// Load reads settings from a JSON file. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	settings.normalize()

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultPath is where the settings file lives unless overridden.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".webtoons", "settings.json")
}

func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s *Settings) RetryBackoff() time.Duration {
	return time.Duration(s.RetryBackoffMS) * time.Millisecond
}

func (s *Settings) normalize() {
	def := DefaultSettings()
	if s.ImageWorkers < 1 {
		s.ImageWorkers = def.ImageWorkers
	}
	if s.ChapterWorkers < 1 {
		s.ChapterWorkers = def.ChapterWorkers
	}
	if s.MaxRetries < 1 {
		s.MaxRetries = def.MaxRetries
	}
	if s.RetryBackoffMS < 1 {
		s.RetryBackoffMS = def.RetryBackoffMS
	}
	if s.TimeoutSeconds < 1 {
		s.TimeoutSeconds = def.TimeoutSeconds
	}
	if s.MinImageBytes < 0 {
		s.MinImageBytes = def.MinImageBytes
	}
}
