package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file settings.
const (
	EnvCacheDir     = "BROADCAST_CACHE_DIR"
	EnvVoice        = "BROADCAST_VOICE"
	EnvStatsBaseURL = "BROADCAST_MLB_BASE_URL"
	EnvConcurrency  = "BROADCAST_CONCURRENCY"
)

// LoadDotEnv loads .env.local and .env from projectRoot into the process
// environment. Variables already set are not overwritten, and missing files
// are ignored.
func LoadDotEnv(projectRoot string) error {
	for _, name := range []string{".env.local", ".env"} {
		path := resolveExternalPath(projectRoot, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat %s: %w", name, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides onto the configuration.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		c.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvVoice)); v != "" {
		c.Narration.Voice = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStatsBaseURL)); v != "" {
		c.Sources.StatsBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv(EnvConcurrency)); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			c.Pipeline.Concurrency = n
		}
	}
}

// resolveExternalPath returns path as-is if absolute, otherwise joins it with projectRoot.
func resolveExternalPath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

// ResolvePath resolves a config-relative path against the project root.
func ResolvePath(projectRoot, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return projectRoot
	}
	return resolveExternalPath(projectRoot, path)
}
