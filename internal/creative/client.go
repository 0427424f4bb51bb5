// Package creative obtains a track description from a locally hosted
// chat-completion server and normalizes it into the closed taxonomy. Every
// failure path degrades to defaults carried with a status string; the
// creative phase never fails a track.
package creative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rhythm/internal/logging"
)

// Status strings surfaced on the track record.
const (
	StatusOK      = "ok"
	StatusOffline = "Ollama offline - creative analysis skipped"
	StatusParse   = "parse_error"
)

// StatusModelMissing formats the model-missing status string.
func StatusModelMissing(model string) string {
	return "model_missing: " + model
}

const maxSuggestedInstruments = 8

// Input carries the technical facts offered to the model.
type Input struct {
	Title string
	BPM   int
	Hints []string
}

// Facts is the normalized creative description.
type Facts struct {
	Genre                []string `json:"genre"`
	Mood                 []string `json:"mood"`
	Theme                []string `json:"theme"`
	SuggestedInstruments []string `json:"suggestedInstruments"`
	Vocals               []string `json:"vocals"`
	LyricThemes          []string `json:"lyricThemes"`
	Narrative            string   `json:"narrative"`
	Confidence           float64  `json:"confidence"`
}

// Defaults returns the empty fabrication used on any failure.
func Defaults() Facts {
	return Facts{
		Genre:                []string{},
		Mood:                 []string{},
		Theme:                []string{},
		SuggestedInstruments: []string{},
		Vocals:               []string{NoVocals},
		LyricThemes:          []string{},
	}
}

// Config captures client settings.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
	DiagnosticsDir string
}

// Client speaks to the local chat-completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a creative client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	timeout := 120 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "creative"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Describe runs the full creative exchange: model precheck, completion,
// tolerant parse, taxonomy normalization. The returned status is one of the
// Status* values; Facts is always usable.
func (c *Client) Describe(ctx context.Context, in Input) (Facts, string) {
	available, err := c.modelAvailable(ctx)
	if err != nil {
		c.logger.Warn("chat server unreachable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "llm_offline"),
			logging.String(logging.FieldErrorHint, "start the local model server"),
		)
		return Defaults(), StatusOffline
	}
	if !available {
		c.logger.Warn("configured model not present on server",
			logging.String("model", c.cfg.Model),
			logging.String(logging.FieldEventType, "llm_model_missing"),
			logging.String(logging.FieldErrorHint, "pull the model or update llm.model"),
		)
		return Defaults(), StatusModelMissing(c.cfg.Model)
	}

	content, err := c.complete(ctx, in)
	if err != nil {
		c.logger.Warn("chat completion failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "llm_request_failed"),
			logging.String(logging.FieldErrorHint, "start the local model server"),
		)
		return Defaults(), StatusOffline
	}

	var raw rawFacts
	if err := DecodeModelJSON(content, &raw); err != nil {
		c.writeDiagnostic(in.Title, content, err)
		return Defaults(), StatusParse
	}
	return normalizeFacts(raw), StatusOK
}

type rawFacts struct {
	Mood        flexibleList `json:"mood"`
	Genre       flexibleList `json:"genre"`
	Theme       flexibleList `json:"theme"`
	Instrument  flexibleList `json:"instrument"`
	Vocals      flexibleList `json:"vocals"`
	LyricThemes flexibleList `json:"lyricThemes"`
	Narrative   string       `json:"narrative"`
	Confidence  json.RawMessage `json:"confidence"`
}

// flexibleList accepts either a JSON array of strings or a single string.
type flexibleList []string

func (f *flexibleList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			*f = nil
			return nil
		}
		*f = []string{single}
		return nil
	}
	// Tolerate arrays of mixed scalars.
	var anyList []any
	if err := json.Unmarshal(data, &anyList); err == nil {
		out := make([]string, 0, len(anyList))
		for _, item := range anyList {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	}
	*f = nil
	return nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
	Content  string `json:"content"`
	Error    string `json:"error"`
}

func (c *Client) complete(ctx context.Context, in Input) (string, error) {
	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt()},
			{Role: "user", Content: userPrompt(in)},
		},
		Stream: false,
		Format: "json",
		Options: chatOptions{
			Temperature: temperatureFor(c.cfg.Model),
			TopP:        0.9,
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("creative request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("creative request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("creative request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("creative request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("creative request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("creative request: decode response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("creative request: api error: %s", parsed.Error)
	}
	// Content preference: message.content, response, content.
	for _, candidate := range []string{parsed.Message.Content, parsed.Response, parsed.Content} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("creative request: empty content")
}

// modelAvailable lists the server's models and checks for the configured one.
// A transport error means offline; a listing without the model means missing.
func (c *Client) modelAvailable(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return false, fmt.Errorf("model listing: http %d", resp.StatusCode)
	}

	var listing struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return false, fmt.Errorf("model listing: decode: %w", err)
	}
	want := strings.ToLower(strings.TrimSpace(c.cfg.Model))
	for _, model := range listing.Models {
		name := strings.ToLower(strings.TrimSpace(model.Name))
		if name == want || strings.TrimSuffix(name, ":latest") == want {
			return true, nil
		}
	}
	return false, nil
}

var modelSizeRe = regexp.MustCompile(`(\d+)b`)

// temperatureFor selects 0.3 for larger models and 0.7 otherwise. Size is
// read from the parameter-count suffix in the model name (e.g. "14b").
func temperatureFor(model string) float64 {
	match := modelSizeRe.FindStringSubmatch(strings.ToLower(model))
	if match != nil {
		if size, err := strconv.Atoi(match[1]); err == nil && size >= 13 {
			return 0.3
		}
	}
	return 0.7
}

func (c *Client) writeDiagnostic(title, content string, parseErr error) {
	c.logger.Warn("creative payload not parseable",
		logging.Error(parseErr),
		logging.String(logging.FieldEventType, "llm_parse_failed"),
		logging.String(logging.FieldErrorHint, "inspect the diagnostics dump"),
	)
	if c.cfg.DiagnosticsDir == "" {
		return
	}
	if err := os.MkdirAll(c.cfg.DiagnosticsDir, 0o755); err != nil {
		return
	}
	slug := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, title)
	if slug == "" {
		slug = "untitled"
	}
	name := fmt.Sprintf("creative_%s_%s.txt", slug, time.Now().UTC().Format("20060102T150405"))
	_ = os.WriteFile(filepath.Join(c.cfg.DiagnosticsDir, name), []byte(content), 0o644)
}
