package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DBDir) == "" {
		return errors.New("paths.db_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url %q is not a valid URL", c.LLM.BaseURL)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	switch c.Workflow.PipelineMode {
	case "concurrent", "sequential":
	default:
		return fmt.Errorf("workflow.pipeline_mode must be %q or %q", "concurrent", "sequential")
	}
	pools := map[string]int{
		"workflow.tech_workers":            c.Workflow.TechWorkers,
		"workflow.creative_workers":        c.Workflow.CreativeWorkers,
		"workflow.instrumentation_workers": c.Workflow.InstrumentationWorkers,
	}
	for name, degree := range pools {
		if degree < MinWorkers || degree > MaxWorkers {
			return fmt.Errorf("%s must be between %d and %d", name, MinWorkers, MaxWorkers)
		}
	}
	return nil
}
