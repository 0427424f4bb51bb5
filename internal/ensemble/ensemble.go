// Package ensemble spawns the external instrument classifier and shapes its
// output. The adapter never fails a track: every error path resolves to a
// stable empty result, and the mix-only rescue salvages likely instruments
// from the per-model statistics when the primary output is empty.
package ensemble

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"rhythm/internal/logging"
)

// ModelStats carries one classifier's per-label statistics.
type ModelStats struct {
	MeanProbs map[string]float64 `json:"mean_probs"`
	PosRatio  map[string]float64 `json:"pos_ratio"`
}

// Boost is a label set pushed by a classifier-side booster.
type Boost struct {
	Added []string `json:"added"`
}

// Trace is the typed view of the classifier decision trace. Raw preserves the
// full document for persistence.
type Trace struct {
	PerModel map[string]ModelStats `json:"per_model"`
	Rules    struct {
		MeanThresh float64 `json:"mean_thresh"`
	} `json:"rules"`
	Boosts map[string]Boost `json:"boosts"`
	Raw    json.RawMessage   `json:"-"`
}

// ElectronicElements reports electronic production markers detected by the
// classifier.
type ElectronicElements struct {
	Detected   bool     `json:"detected"`
	Confidence string   `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Result is the stable shape the instrumentation phase consumes.
type Result struct {
	Mode               string              `json:"mode"`
	UsedDemucs         bool                `json:"used_demucs"`
	Instruments        []string            `json:"instruments"`
	Trace              Trace               `json:"decision_trace"`
	ElectronicElements *ElectronicElements `json:"electronic_elements,omitempty"`
	// Rescued records the labels added by the mix-only rescue.
	Rescued []string `json:"-"`
	// Err carries the failure cause for logging; the result stays usable.
	Err error `json:"-"`
}

func emptyResult(err error) Result {
	return Result{
		Mode:        "mix-only",
		Instruments: []string{},
		Err:         err,
	}
}

// Client runs the ensemble classifier subprocess.
type Client struct {
	python    string
	script    string
	useDemucs bool
	logger    *slog.Logger
}

// NewClient constructs the subprocess client.
func NewClient(python, script string, useDemucs bool, logger *slog.Logger) *Client {
	python = strings.TrimSpace(python)
	if python == "" {
		python = "python3"
	}
	return &Client{
		python:    python,
		script:    strings.TrimSpace(script),
		useDemucs: useDemucs,
		logger:    logging.NewComponentLogger(logger, "ensemble"),
	}
}

// Analyze classifies the audio file. It never returns an error: failures are
// folded into the result (empty instruments, Err set for logging). The
// booster merge and mix-only rescue run before the result is returned.
func (c *Client) Analyze(ctx context.Context, audioPath string) Result {
	if c.script == "" {
		return emptyResult(errors.New("classifier script not configured"))
	}

	outDir, err := os.MkdirTemp("", "rhythm-ensemble-")
	if err != nil {
		return emptyResult(fmt.Errorf("temp dir: %w", err))
	}
	defer os.RemoveAll(outDir)
	jsonOut := filepath.Join(outDir, "ensemble.json")

	demucs := "0"
	if c.useDemucs {
		demucs = "1"
	}
	cmd := exec.CommandContext(ctx, c.python, c.script,
		"--audio", audioPath,
		"--json-out", jsonOut,
		"--demucs", demucs,
	)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}

	combined, runErr := cmd.CombinedOutput()
	if runErr != nil {
		c.logger.Warn("classifier run failed",
			logging.Error(runErr),
			logging.String("stderr_tail", tail(string(combined), 400)),
			logging.String(logging.FieldEventType, "ensemble_failed"),
			logging.String(logging.FieldErrorHint, "check classifier environment"),
		)
		// The script may still have written a usable document before dying.
	}

	payload, readErr := os.ReadFile(jsonOut)
	if readErr != nil {
		if runErr == nil {
			runErr = readErr
		}
		return emptyResult(runErr)
	}

	result, parseErr := parseResult(payload)
	if parseErr != nil {
		if runErr == nil {
			runErr = parseErr
		}
		return emptyResult(runErr)
	}

	mergeBoosts(&result)
	if len(result.Instruments) == 0 && !result.UsedDemucs {
		result.Rescued = rescueFromTrace(result.Trace)
		result.Instruments = append(result.Instruments, result.Rescued...)
	}
	return result
}

func parseResult(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("parse classifier output: %w", err)
	}
	if result.Instruments == nil {
		result.Instruments = []string{}
	}
	if result.Mode == "" {
		if result.UsedDemucs {
			result.Mode = "stems"
		} else {
			result.Mode = "mix-only"
		}
	}
	// Keep the untyped trace for lossless persistence.
	var envelope struct {
		DecisionTrace json.RawMessage `json:"decision_trace"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		result.Trace.Raw = envelope.DecisionTrace
	}
	return result, nil
}

// mergeBoosts appends booster-added labels not already present, preserving
// encounter order with deterministic iteration over boost names.
func mergeBoosts(result *Result) {
	if len(result.Trace.Boosts) == 0 {
		return
	}
	present := map[string]struct{}{}
	for _, label := range result.Instruments {
		present[label] = struct{}{}
	}
	for _, name := range sortedBoostNames(result.Trace.Boosts) {
		for _, label := range result.Trace.Boosts[name].Added {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if _, ok := present[label]; ok {
				continue
			}
			present[label] = struct{}{}
			result.Instruments = append(result.Instruments, label)
		}
	}
}

func sortedBoostNames(boosts map[string]Boost) []string {
	names := make([]string, 0, len(boosts))
	for name := range boosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
