package creative

import (
	"fmt"
	"strings"
)

// systemPrompt enumerates the closed taxonomy and demands a single JSON
// object with the exact field set the parser expects.
func systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a music supervisor describing production-library tracks. ")
	b.WriteString("Respond with a single JSON object and nothing else. ")
	b.WriteString("The object must contain exactly these fields: ")
	b.WriteString(`{"mood": [], "genre": [], "theme": [], "instrument": [], "vocals": [], "lyricThemes": [], "narrative": "", "confidence": 0.0}.` + "\n\n")
	b.WriteString("Choose values only from these lists:\n")
	b.WriteString("mood: " + strings.Join(Moods, ", ") + "\n")
	b.WriteString("genre: " + strings.Join(Genres, ", ") + "\n")
	b.WriteString("theme: " + strings.Join(Themes, ", ") + "\n")
	b.WriteString("vocals: " + strings.Join(Vocals, ", ") + "\n\n")
	b.WriteString("instrument: common instrument names (guitar, piano, strings, brass, drums, synth, ...). ")
	b.WriteString("lyricThemes: short free-form phrases, empty when there are no vocals. ")
	b.WriteString("narrative: at most two sentences describing how the track could be used. ")
	b.WriteString("confidence: your certainty between 0 and 1.")
	return b.String()
}

// userPrompt packs the known technical facts for the model.
func userPrompt(in Input) string {
	var b strings.Builder
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(&b, "Track title: %s\n", title)
	if in.BPM > 0 {
		fmt.Fprintf(&b, "Tempo: %d BPM\n", in.BPM)
	}
	if len(in.Hints) > 0 {
		fmt.Fprintf(&b, "Audio analysis hints: %s\n", strings.Join(in.Hints, ", "))
	}
	b.WriteString("Describe this track.")
	return b.String()
}
