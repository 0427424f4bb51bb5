// Package tags reads embedded metadata (ID3, AIFF/WAV chunks) from audio
// files. Read failures are non-fatal: callers receive an empty TagMap.
package tags

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// TagMap carries the embedded tags the pipeline consumes.
type TagMap struct {
	Title     string   `json:"title,omitempty"`
	Artist    string   `json:"artist,omitempty"`
	Album     string   `json:"album,omitempty"`
	Year      int      `json:"year,omitempty"`
	Genre     []string `json:"genre,omitempty"`
	Track     int      `json:"track,omitempty"`
	Comment   string   `json:"comment,omitempty"`
	Composer  string   `json:"composer,omitempty"`
	Copyright string   `json:"copyright,omitempty"`
	TBPM      string   `json:"tbpm,omitempty"`
	Key       string   `json:"key,omitempty"`
	Mood      string   `json:"mood,omitempty"`
}

// Empty reports whether no tag carried a value.
func (t TagMap) Empty() bool {
	return t.Title == "" && t.Artist == "" && t.Album == "" && t.Year == 0 &&
		len(t.Genre) == 0 && t.Track == 0 && t.Comment == "" && t.Composer == "" &&
		t.Copyright == "" && t.TBPM == "" && t.Key == "" && t.Mood == ""
}

// TBPMValue parses the TBPM frame as an integer BPM. Trailing text such as
// "148 bpm" is tolerated. Returns false outside [1,399].
func (t TagMap) TBPMValue() (int, bool) {
	fields := strings.Fields(strings.TrimSpace(t.TBPM))
	if len(fields) == 0 {
		return 0, false
	}
	value, err := strconv.Atoi(fields[0])
	if err != nil {
		// Some taggers write fractional BPM.
		parsed, ferr := strconv.ParseFloat(fields[0], 64)
		if ferr != nil {
			return 0, false
		}
		value = int(parsed + 0.5)
	}
	if value < 1 || value > 399 {
		return 0, false
	}
	return value, true
}

// Read extracts tags from the file at path. Any failure returns an empty map
// and the error; callers log and continue.
func Read(path string) (TagMap, error) {
	file, err := os.Open(path)
	if err != nil {
		return TagMap{}, fmt.Errorf("tags open: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return TagMap{}, fmt.Errorf("tags parse: %w", err)
	}

	trackNo, _ := metadata.Track()
	result := TagMap{
		Title:    strings.TrimSpace(metadata.Title()),
		Artist:   strings.TrimSpace(metadata.Artist()),
		Album:    strings.TrimSpace(metadata.Album()),
		Year:     metadata.Year(),
		Genre:    splitGenres(metadata.Genre()),
		Track:    trackNo,
		Comment:  strings.TrimSpace(metadata.Comment()),
		Composer: strings.TrimSpace(metadata.Composer()),
	}

	raw := metadata.Raw()
	result.Copyright = rawString(raw, "TCOP", "copyright", "(c)")
	result.TBPM = rawString(raw, "TBPM", "bpm")
	result.Key = rawString(raw, "TKEY", "initialkey", "key")
	result.Mood = rawString(raw, "TMOO", "mood")
	return result, nil
}

func splitGenres(genre string) []string {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil
	}
	parts := strings.FieldsFunc(genre, func(r rune) bool {
		return r == ';' || r == '/' || r == ','
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func rawString(raw map[string]interface{}, keys ...string) string {
	if raw == nil {
		return ""
	}
	for _, key := range keys {
		value, ok := raw[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case *tag.Comm:
			if v != nil {
				if trimmed := strings.TrimSpace(v.Text); trimmed != "" {
					return trimmed
				}
			}
		case fmt.Stringer:
			if trimmed := strings.TrimSpace(v.String()); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
