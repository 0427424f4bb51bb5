// Package config loads, normalizes, and validates the TOML configuration for
// the analysis pipeline.
//
// Load resolves the config file (explicit flag, then ~/.config/rhythm, then a
// project-local rhythm.toml), decodes it over Default(), expands tilde paths,
// and validates paths, the LLM endpoint, the pipeline mode, and pool bounds. Components receive a *Config
// and never read files or environment variables themselves.
package config
