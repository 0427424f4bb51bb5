// Package probes runs lightweight audio classifiers over sampled windows of a
// track. Window failures are isolated; a track never fails because a probe
// did.
package probes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"rhythm/internal/logging"
)

const (
	windowLengthSec = 10.0
	// Scores below this floor do not become hints.
	scoreFloor = 0.5
)

// LabelScore is one ranked label from a probe window.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Window is the parsed output of a single probe window.
type Window struct {
	ClapTop   []LabelScore `json:"clap_top"`
	ASTLabels []string     `json:"ast_labels"`
}

// Result aggregates all windows for a track.
type Result struct {
	Status    string          `json:"status"`
	Hints     map[string]bool `json:"hints"`
	PerWindow []Window        `json:"per_window"`
	Scores    map[string]float64
}

// HasHint reports whether any hint label contains the given substring.
func (r Result) HasHint(substr string) bool {
	substr = strings.ToLower(substr)
	for label := range r.Hints {
		if strings.Contains(label, substr) {
			return true
		}
	}
	return false
}

// Runner executes probe windows against an audio file.
type Runner interface {
	Run(ctx context.Context, path string, durationSec float64) Result
}

// SubprocessRunner spawns the probe tool once per window.
type SubprocessRunner struct {
	python        string
	script        string
	windowTimeout time.Duration
	logger        *slog.Logger
}

// NewSubprocessRunner constructs a runner around the probe script.
func NewSubprocessRunner(python, script string, windowTimeout time.Duration, logger *slog.Logger) *SubprocessRunner {
	if windowTimeout <= 0 {
		windowTimeout = 15 * time.Second
	}
	return &SubprocessRunner{
		python:        strings.TrimSpace(python),
		script:        strings.TrimSpace(script),
		windowTimeout: windowTimeout,
		logger:        logging.NewComponentLogger(logger, "probes"),
	}
}

// Run samples up to three windows (start, middle, end) and merges their
// labels into hints. An all-windows failure yields status "skipped" with
// empty hints.
func (r *SubprocessRunner) Run(ctx context.Context, path string, durationSec float64) Result {
	result := Result{
		Status: "ok",
		Hints:  map[string]bool{},
		Scores: map[string]float64{},
	}
	if r.script == "" {
		result.Status = "skipped"
		return result
	}

	succeeded := 0
	for _, offset := range windowOffsets(durationSec) {
		window, err := r.runWindow(ctx, path, offset)
		if err != nil {
			if ctx.Err() != nil {
				result.Status = "skipped"
				return result
			}
			r.logger.Debug("probe window failed",
				logging.String("path", path),
				logging.Float64("offset_sec", offset),
				logging.Error(err),
			)
			continue
		}
		succeeded++
		result.PerWindow = append(result.PerWindow, window)
		mergeWindow(&result, window)
	}

	if succeeded == 0 {
		result.Status = "skipped"
		result.Hints = map[string]bool{}
		result.PerWindow = nil
	}
	return result
}

func (r *SubprocessRunner) runWindow(ctx context.Context, path string, offsetSec float64) (Window, error) {
	windowCtx, cancel := context.WithTimeout(ctx, r.windowTimeout)
	defer cancel()

	args := []string{
		r.script,
		"--probe",
		"--audio", path,
		"--offset", strconv.FormatFloat(offsetSec, 'f', 2, 64),
		"--length", strconv.FormatFloat(windowLengthSec, 'f', 2, 64),
	}
	cmd := exec.CommandContext(windowCtx, r.python, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Window{}, fmt.Errorf("probe window: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Window{}, fmt.Errorf("probe window: %w", err)
	}

	var window Window
	if err := json.Unmarshal(output, &window); err != nil {
		return Window{}, fmt.Errorf("probe window parse: %w", err)
	}
	return window, nil
}

func mergeWindow(result *Result, window Window) {
	for _, entry := range window.ClapTop {
		label := strings.ToLower(strings.TrimSpace(entry.Label))
		if label == "" {
			continue
		}
		if entry.Score > result.Scores[label] {
			result.Scores[label] = entry.Score
		}
		if entry.Score >= scoreFloor {
			result.Hints[label] = true
		}
	}
	for _, label := range window.ASTLabels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label != "" {
			result.Hints[label] = true
		}
	}
}

func windowOffsets(durationSec float64) []float64 {
	if durationSec <= windowLengthSec {
		return []float64{0}
	}
	mid := durationSec/2 - windowLengthSec/2
	end := durationSec - windowLengthSec - 1
	if end < 0 {
		end = 0
	}
	offsets := []float64{0}
	if mid > windowLengthSec {
		offsets = append(offsets, mid)
	}
	if end > mid+windowLengthSec {
		offsets = append(offsets, end)
	}
	return offsets
}
