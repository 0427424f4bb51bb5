// Package pcm decodes audio files to mono float samples by streaming ffmpeg
// output. The tempo estimator and audio probes consume its windows.
package pcm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Request describes a single decode window.
type Request struct {
	Path       string
	OffsetSec  float64
	LengthSec  float64
	SampleRate int
}

// Decoder spawns ffmpeg to produce mono f32 PCM at a requested rate.
type Decoder struct {
	binary string
}

// NewDecoder constructs a decoder around the given ffmpeg binary.
func NewDecoder(binary string) *Decoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Decoder{binary: binary}
}

// Decode pulls one window of mono samples. The returned slice may be shorter
// than requested when the window runs past the end of the file.
func (d *Decoder) Decode(ctx context.Context, req Request) ([]float64, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, errors.New("pcm decode: empty path")
	}
	if req.SampleRate <= 0 {
		req.SampleRate = 44100
	}

	args := []string{"-v", "error", "-nostdin"}
	if req.OffsetSec > 0 {
		args = append(args, "-ss", formatSeconds(req.OffsetSec))
	}
	args = append(args, "-i", req.Path)
	if req.LengthSec > 0 {
		args = append(args, "-t", formatSeconds(req.LengthSec))
	}
	args = append(args,
		"-f", "f32le",
		"-ac", "1",
		"-ar", strconv.Itoa(req.SampleRate),
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, d.binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Terminate the whole process group so filter subprocesses go too.
		return unix.Kill(-cmd.Process.Pid, unix.SIGTERM)
	}

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pcm decode: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("pcm decode: %w", err)
	}

	return samplesFromF32LE(output), nil
}

func samplesFromF32LE(raw []byte) []float64 {
	count := len(raw) / 4
	samples := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		value := float64(math.Float32frombits(bits))
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = 0
		}
		samples = append(samples, value)
	}
	return samples
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
