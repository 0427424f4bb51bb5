package ensemble

import "sort"

// Mix-only rescue thresholds. Tuned against the classifier's score
// distribution; kept in one place for recalibration.
const (
	rescueMeanFloor     = 0.006
	rescuePosFloor      = 0.02
	rescuePannsPosBonus = 0.06
	rescueMaxPicks      = 4
)

// rescueCandidates is the fixed candidate set inspected when the ensemble
// returns empty without stem separation, with display-name mapping.
var rescueCandidates = []struct {
	key     string
	display string
}{
	{"electric_guitar", "Electric Guitar"},
	{"acoustic_guitar", "Acoustic Guitar"},
	{"bass_guitar", "Bass Guitar"},
	{"drum_kit", "Drum Kit (acoustic)"},
	{"piano", "Piano"},
	{"organ", "Organ"},
	{"brass", "Brass"},
	{"strings", "Strings"},
}

// rescueFromTrace picks up to four likely instruments from the per-model
// statistics. A candidate passes when the combined mean and positive-window
// ratio both clear their floors, or when PANNs alone shows a strong positive
// ratio. Passing candidates rank by mean*0.7 + pos*0.3.
func rescueFromTrace(trace Trace) []string {
	panns, hasPanns := trace.PerModel["panns"]
	yamnet, hasYamnet := trace.PerModel["yamnet"]
	if !hasPanns && !hasYamnet {
		return nil
	}

	type pick struct {
		display string
		score   float64
		order   int
	}
	var picks []pick
	for i, candidate := range rescueCandidates {
		meanP := panns.MeanProbs[candidate.key]
		meanY := yamnet.MeanProbs[candidate.key]
		posP := panns.PosRatio[candidate.key]
		posY := yamnet.PosRatio[candidate.key]

		mean := meanP + meanY
		pos := posP + posY

		passes := (mean >= rescueMeanFloor && pos >= rescuePosFloor) || posP >= rescuePannsPosBonus
		if !passes {
			continue
		}
		picks = append(picks, pick{
			display: candidate.display,
			score:   mean*0.7 + pos*0.3,
			order:   i,
		})
	}

	sort.SliceStable(picks, func(i, j int) bool {
		if picks[i].score != picks[j].score {
			return picks[i].score > picks[j].score
		}
		return picks[i].order < picks[j].order
	})
	if len(picks) > rescueMaxPicks {
		picks = picks[:rescueMaxPicks]
	}

	out := make([]string, 0, len(picks))
	for _, p := range picks {
		out = append(out, p.display)
	}
	return out
}

// ElevateElectronicConfidence raises a low-confidence electronic-elements
// verdict to medium when the creative genre set points the same way.
func ElevateElectronicConfidence(elements *ElectronicElements, genres []string) {
	if elements == nil || !elements.Detected || elements.Confidence != "low" {
		return
	}
	for _, genre := range genres {
		if genre == "Electronic" || genre == "Hip hop/Rap" {
			elements.Confidence = "medium"
			elements.Reasons = append(elements.Reasons, "creative genre agreement")
			return
		}
	}
}
