// Package instruments canonicalizes instrument labels and collapses family
// members into section tokens. Finalize is a pure function; the same inputs
// always produce the same ordered list.
package instruments

// Sources carries the ordered label lists feeding finalization. Order is
// significant: first-seen across ensemble, probe rescues, then additional
// sources fixes the output order.
type Sources struct {
	Ensemble     []string
	ProbeRescues []string
	Additional   []string
}

var (
	brassSet    = memberSet(brassMembers)
	woodwindSet = memberSet(woodwindMembers)
	stringSet   = memberSet(stringMembers)
	padLikeSet  = memberSet(padLike)
)

// Finalize produces the authoritative ordered, deduplicated instrument list.
//
// Steps, in order: alias normalization, stable dedup across the concatenated
// sources, family collapse into section tokens, assembly with section tokens
// leading in Brass/Woodwinds/Strings order and the surviving individual
// instruments following in first-seen order, then the strings soft-guard
// applied to the assembled list.
func Finalize(src Sources) []string {
	var merged []string
	seen := map[string]struct{}{}
	for _, list := range [][]string{src.Ensemble, src.ProbeRescues, src.Additional} {
		for _, label := range list {
			canonical := normalizeAlias(label)
			if canonical == "" {
				continue
			}
			if _, ok := seen[canonical]; ok {
				continue
			}
			seen[canonical] = struct{}{}
			merged = append(merged, canonical)
		}
	}

	needed := neededSections(merged)

	out := make([]string, 0, len(merged))
	for _, family := range []string{FamilyBrass, FamilyWoodwinds, FamilyStrings} {
		if _, ok := needed[family]; ok {
			out = append(out, family)
		}
	}
	for _, label := range merged {
		if label == FamilyBrass || label == FamilyWoodwinds || label == FamilyStrings {
			continue
		}
		if collapsedInto(label, needed) {
			continue
		}
		out = append(out, label)
	}
	return stringsSoftGuard(out)
}

func normalizeAlias(label string) string {
	if label == "" {
		return ""
	}
	if canonical, ok := aliases[label]; ok {
		return canonical
	}
	return label
}

// neededSections decides which family tokens the output must carry. Brass and
// Woodwinds collapse on any member; Strings collapses only when the section
// label itself appears or at least two distinct bowed/plucked members do, so
// a lone featured Violin survives as itself.
func neededSections(labels []string) map[string]struct{} {
	needed := map[string]struct{}{}
	stringMembersSeen := 0
	for _, label := range labels {
		switch label {
		case FamilyBrass:
			needed[FamilyBrass] = struct{}{}
			continue
		case FamilyWoodwinds:
			needed[FamilyWoodwinds] = struct{}{}
			continue
		case FamilyStrings:
			needed[FamilyStrings] = struct{}{}
			continue
		}
		if _, ok := brassSet[label]; ok {
			needed[FamilyBrass] = struct{}{}
		}
		if _, ok := woodwindSet[label]; ok {
			needed[FamilyWoodwinds] = struct{}{}
		}
		if _, ok := stringSet[label]; ok {
			stringMembersSeen++
		}
	}
	if stringMembersSeen >= 2 {
		needed[FamilyStrings] = struct{}{}
	}
	return needed
}

// collapsedInto reports whether an individual member is absorbed by a section
// token present in needed.
func collapsedInto(label string, needed map[string]struct{}) bool {
	if _, ok := brassSet[label]; ok {
		_, brass := needed[FamilyBrass]
		return brass
	}
	if _, ok := woodwindSet[label]; ok {
		_, woodwinds := needed[FamilyWoodwinds]
		return woodwinds
	}
	if _, ok := stringSet[label]; ok {
		_, strings := needed[FamilyStrings]
		return strings
	}
	return false
}

// stringsSoftGuard drops the Strings token from the assembled list when no
// bowed member survived alongside it, pad-like instruments are present, and
// no Brass anchors the section. Classifier string sections over organ/synth
// pads are usually sustained-chord bleed. The guard inspects the output, not
// the pre-collapse input, so finalizing a finalized list changes nothing.
func stringsSoftGuard(labels []string) []string {
	hasStrings := false
	hasPad := false
	for _, label := range labels {
		switch label {
		case FamilyStrings:
			hasStrings = true
		case FamilyBrass:
			return labels
		default:
			if _, ok := stringSet[label]; ok {
				return labels
			}
			if _, ok := padLikeSet[label]; ok {
				hasPad = true
			}
		}
	}
	if !hasStrings || !hasPad {
		return labels
	}
	out := labels[:0]
	for _, label := range labels {
		if label == FamilyStrings {
			continue
		}
		out = append(out, label)
	}
	return out
}
