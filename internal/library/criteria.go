package library

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Tempo band labels, lower bound inclusive, upper exclusive.
const (
	BandVerySlow = "Very Slow (Below 60 BPM)"
	BandSlow     = "Slow (60-90 BPM)"
	BandMedium   = "Medium (90-110 BPM)"
	BandUpbeat   = "Upbeat (110-140 BPM)"
	BandFast     = "Fast (140-160 BPM)"
	BandVeryFast = "Very Fast (160+ BPM)"
)

// TempoBand buckets a BPM into its display label.
func TempoBand(bpm int) string {
	switch {
	case bpm < 60:
		return BandVerySlow
	case bpm < 90:
		return BandSlow
	case bpm < 110:
		return BandMedium
	case bpm < 140:
		return BandUpbeat
	case bpm < 160:
		return BandFast
	default:
		return BandVeryFast
	}
}

const sectionSuffix = " (section)"

func buildCriteria(store MainStore) CriteriaStore {
	var genre, mood, instrument, vocals, theme, bands, keys, artists, electronic []string

	for _, rec := range store.Tracks {
		genre = append(genre, rec.Creative.Genre...)
		mood = append(mood, rec.Creative.Mood...)
		vocals = append(vocals, rec.Creative.Vocals...)
		theme = append(theme, rec.Creative.Theme...)

		for _, label := range InstrumentPrecedence(rec) {
			instrument = append(instrument, strings.TrimSuffix(label, sectionSuffix))
		}

		if rec.Technical.BPM > 0 {
			bands = append(bands, TempoBand(rec.Technical.BPM))
		}
		if key := strings.TrimSpace(rec.Technical.Tags.Key); key != "" {
			keys = append(keys, key)
		}
		if artist := strings.TrimSpace(rec.Technical.Tags.Artist); artist != "" {
			artists = append(artists, artist)
		}
		if elements := rec.Analysis.ElectronicElements; elements != nil {
			if elements.Detected {
				electronic = append(electronic, "Yes")
			} else {
				electronic = append(electronic, "No")
			}
		}
	}

	return CriteriaStore{
		Genre:              facetSet(genre),
		Mood:               facetSet(mood),
		Instrument:         facetSet(instrument),
		Vocals:             facetSet(vocals),
		Theme:              facetSet(theme),
		TempoBands:         facetSet(bands),
		Keys:               facetSet(keys),
		Artists:            facetSet(artists),
		ElectronicElements: facetSet(electronic),
	}
}

// facetSet sorts case-insensitively and deduplicates. Values arrive in map
// iteration order, so the candidates are byte-sorted first: the surviving
// spelling of case-variant duplicates is then deterministic and successive
// rebuilds of the same store stay byte-identical.
func facetSet(values []string) []string {
	candidates := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}
	sort.Strings(candidates)

	out := []string{}
	seen := map[string]struct{}{}
	for _, value := range candidates {
		lower := strings.ToLower(value)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, value)
	}
	collator := collate.New(language.English, collate.IgnoreCase)
	collator.SortStrings(out)
	return out
}
