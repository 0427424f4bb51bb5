package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLLM()
	c.normalizeWorkflow()
	c.normalizeProbes()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DBDir) == "" {
		c.Paths.DBDir = defaultDBDir
	}
	if c.Paths.DBDir, err = expandPath(c.Paths.DBDir); err != nil {
		return fmt.Errorf("paths.db_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WaveformDir, err = expandPath(c.Paths.WaveformDir); err != nil {
		return fmt.Errorf("paths.waveform_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBin
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBin
	}
	c.Tools.ClassifierPython = strings.TrimSpace(c.Tools.ClassifierPython)
	if c.Tools.ClassifierPython == "" {
		c.Tools.ClassifierPython = defaultClassifierPython
	}
	c.Tools.ClassifierScript = strings.TrimSpace(c.Tools.ClassifierScript)
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.PipelineMode = strings.ToLower(strings.TrimSpace(c.Workflow.PipelineMode))
	if c.Workflow.PipelineMode == "" {
		c.Workflow.PipelineMode = defaultPipelineMode
	}
	if c.Workflow.TechWorkers == 0 {
		c.Workflow.TechWorkers = defaultWorkers
	}
	if c.Workflow.CreativeWorkers == 0 {
		c.Workflow.CreativeWorkers = defaultWorkers
	}
	if c.Workflow.InstrumentationWorkers == 0 {
		c.Workflow.InstrumentationWorkers = defaultWorkers
	}
	if c.Workflow.ReadyTimeoutSeconds <= 0 {
		c.Workflow.ReadyTimeoutSeconds = defaultReadyTimeoutSeconds
	}
	if c.Workflow.ShutdownGraceSeconds <= 0 {
		c.Workflow.ShutdownGraceSeconds = defaultShutdownGraceSeconds
	}
}

func (c *Config) normalizeProbes() {
	if c.Probes.WindowTimeoutSeconds <= 0 {
		c.Probes.WindowTimeoutSeconds = defaultProbeWindowTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
