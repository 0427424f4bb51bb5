package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir  string `toml:"library_dir"`
	DBDir       string `toml:"db_dir"`
	LogDir      string `toml:"log_dir"`
	WaveformDir string `toml:"waveform_dir"`
}

// Tools contains the external binaries the pipeline spawns.
type Tools struct {
	FFprobe          string `toml:"ffprobe"`
	FFmpeg           string `toml:"ffmpeg"`
	ClassifierPython string `toml:"classifier_python"`
	ClassifierScript string `toml:"classifier_script"`
	UseDemucs        bool   `toml:"use_demucs"`
}

// LLM contains connection settings for the local chat-completion server.
type LLM struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Workflow contains scheduler pool sizing and mode.
type Workflow struct {
	// PipelineMode is "concurrent" (default) or "sequential". Sequential
	// holds instrumentation until creative completes for the same track.
	PipelineMode           string `toml:"pipeline_mode"`
	TechWorkers            int    `toml:"tech_workers"`
	CreativeWorkers        int    `toml:"creative_workers"`
	InstrumentationWorkers int    `toml:"instrumentation_workers"`
	// ReadyTimeoutSeconds bounds how long submissions buffer before the
	// scheduler assumes observer readiness.
	ReadyTimeoutSeconds int `toml:"ready_timeout_seconds"`
	// ShutdownGraceSeconds bounds how long graceful shutdown waits for
	// in-flight work to finish; work still running after it is not cancelled.
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
}

// Probes contains audio probe window settings.
type Probes struct {
	WindowTimeoutSeconds int `toml:"window_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the pipeline.
//
// Configuration sections by subsystem:
//   - Paths: library, store, log, and waveform cache directories
//   - Tools: ffprobe/ffmpeg/classifier binaries
//   - LLM: local chat-completion server settings
//   - Workflow: scheduler pool sizing and pipeline mode
//   - Probes: audio probe window timeouts
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Tools    Tools    `toml:"tools"`
	LLM      LLM      `toml:"llm"`
	Workflow Workflow `toml:"workflow"`
	Probes   Probes   `toml:"probes"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rhythm/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err = os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("rhythm.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the pipeline writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DBDir, c.Paths.LogDir}
	if c.Paths.WaveformDir != "" {
		dirs = append(dirs, c.Paths.WaveformDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DiagnosticsDir returns the directory used for creative parse diagnostics.
func (c *Config) DiagnosticsDir() string {
	return filepath.Join(c.Paths.LogDir, "diagnostics")
}

// MainStorePath returns the path of the aggregated track store.
func (c *Config) MainStorePath() string {
	return filepath.Join(c.Paths.DBDir, "RhythmDB.json")
}

// CriteriaStorePath returns the path of the faceted criteria store.
func (c *Config) CriteriaStorePath() string {
	return filepath.Join(c.Paths.DBDir, "CriteriaDB.json")
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
