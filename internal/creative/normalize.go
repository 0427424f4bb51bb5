package creative

import (
	"encoding/json"
	"strconv"
	"strings"
)

// normalizeFacts coerces the parsed model output into the closed taxonomy.
func normalizeFacts(raw rawFacts) Facts {
	facts := Facts{
		Genre:                mapTaxonomy(raw.Genre, genreSet),
		Mood:                 mapTaxonomy(raw.Mood, moodSet),
		Theme:                mapTaxonomy(raw.Theme, themeSet),
		SuggestedInstruments: mapInstruments(raw.Instrument),
		LyricThemes:          trimList(raw.LyricThemes),
		Narrative:            clampNarrative(raw.Narrative),
		Confidence:           parseConfidence(raw.Confidence),
	}

	vocals, allMapped := mapVocals(raw.Vocals)
	if len(vocals) == 0 || !allMapped {
		vocals = []string{NoVocals}
	}
	facts.Vocals = vocals

	if len(facts.Vocals) == 1 && facts.Vocals[0] == NoVocals {
		facts.LyricThemes = []string{}
	}
	return facts
}

func mapTaxonomy(values []string, set map[string]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, value := range values {
		canonical, ok := set[strings.ToLower(strings.TrimSpace(value))]
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// mapInstruments resolves free-form names through the synonym table, capped
// at eight suggestions. The list is advisory only and never reaches
// analysis.instruments.
func mapInstruments(values []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		canonical, ok := instrumentSynonyms[key]
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
		if len(out) == maxSuggestedInstruments {
			break
		}
	}
	return out
}

// mapVocals resolves vocal labels through the vocal table. allMapped is false
// when any non-blank entry failed to map; callers then fall back to NoVocals.
func mapVocals(values []string) ([]string, bool) {
	out := []string{}
	seen := map[string]struct{}{}
	allMapped := true
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key == "" {
			continue
		}
		canonical, ok := vocalSynonyms[key]
		if !ok {
			canonical, ok = vocalSet[key]
		}
		if !ok {
			allMapped = false
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out, allMapped
}

func trimList(values []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(trimmed)]; dup {
			continue
		}
		seen[strings.ToLower(trimmed)] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

const maxNarrativeLen = 200

func clampNarrative(narrative string) string {
	trimmed := strings.TrimSpace(narrative)
	runes := []rune(trimmed)
	if len(runes) <= maxNarrativeLen {
		return trimmed
	}
	return string(runes[:maxNarrativeLen])
}

// parseConfidence accepts a JSON number (halved when above 1) or a string,
// optionally with a percent sign, and coerces the result into [0,1].
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		if number > 1 {
			number /= 2
		}
		return clamp01(number)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		percent := strings.HasSuffix(text, "%")
		text = strings.TrimSuffix(text, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return 0
		}
		if percent || parsed > 1 {
			parsed /= 100
		}
		return clamp01(parsed)
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
