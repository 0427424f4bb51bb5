package instruments

import (
	"reflect"
	"testing"
)

func finalizeList(labels ...string) []string {
	return Finalize(Sources{Ensemble: labels})
}

func TestAliasNormalization(t *testing.T) {
	got := finalizeList("Drums", "Hammond organ", "Guitars")
	want := []string{"Drum Kit (acoustic)", "Organ", "Electric Guitar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStableDedupAcrossSources(t *testing.T) {
	got := Finalize(Sources{
		Ensemble:     []string{"Piano", "Electric Guitar"},
		ProbeRescues: []string{"Electric Guitar", "Bass Guitar"},
		Additional:   []string{"Piano", "Synth"},
	})
	want := []string{"Piano", "Electric Guitar", "Bass Guitar", "Synth"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBrassCollapseWithSingleBowedSurvivor(t *testing.T) {
	got := finalizeList("Trumpet", "Trombone", "Violin")
	want := []string{"Brass", "Violin"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStringsCollapseOnTwoMembers(t *testing.T) {
	got := finalizeList("Violin", "Cello", "Piano")
	want := []string{"Strings", "Piano"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestWoodwindCollapse(t *testing.T) {
	got := finalizeList("Flute", "Clarinet", "Piano")
	want := []string{"Woodwinds", "Piano"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSoftGuardDropsUnanchoredStrings(t *testing.T) {
	got := finalizeList("Strings", "Organ")
	want := []string{"Organ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSoftGuardKeepsAnchoredStrings(t *testing.T) {
	got := finalizeList("Strings", "Organ", "Brass")
	want := []string{"Brass", "Strings", "Organ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSoftGuardDropsCollapsedStringsOverPad(t *testing.T) {
	// Both bowed members collapse into Strings, leaving the section
	// unanchored over a pad; the guard strips it from the output.
	got := finalizeList("Violin", "Viola", "Organ")
	want := []string{"Organ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	// Same configuration with an explicit section label.
	got = finalizeList("Strings", "Violin", "Organ")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSoftGuardKeepsSurvivingBowedMember(t *testing.T) {
	// A lone Violin never collapses, so the guard leaves it alone.
	got := finalizeList("Violin", "Organ")
	want := []string{"Violin", "Organ"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFinalizeIdempotent(t *testing.T) {
	inputs := [][]string{
		{"Trumpet", "Trombone", "Violin"},
		{"Strings", "Organ", "Brass"},
		{"Drums", "Guitars", "Flute", "Clarinet"},
		{"Strings", "Organ"},
		{"Violin", "Viola", "Organ"},
		{"Strings", "Violin", "Organ"},
		{"Violin", "Cello", "Synth", "Keyboard"},
	}
	for _, input := range inputs {
		once := finalizeList(input...)
		twice := Finalize(Sources{Ensemble: once})
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("not idempotent for %v: %v vs %v", input, once, twice)
		}
	}
}

func TestFamilyClosure(t *testing.T) {
	got := finalizeList("Trumpet", "Tuba", "French Horn", "Piano")
	for _, token := range got {
		if _, ok := brassSet[token]; ok {
			t.Fatalf("brass member leaked into output: %v", got)
		}
	}
	if got[0] != FamilyBrass {
		t.Fatalf("expected Brass section, got %v", got)
	}
}

func TestIsCanonical(t *testing.T) {
	if !IsCanonical("Electric Guitar") {
		t.Fatal("Electric Guitar should be canonical")
	}
	if IsCanonical("Air Guitar") {
		t.Fatal("Air Guitar should not be canonical")
	}
}
