package creative

import (
	"testing"
)

type probePayload struct {
	Mood      []string `json:"mood"`
	Narrative string   `json:"narrative"`
}

func TestDecodeModelJSONRaw(t *testing.T) {
	var out probePayload
	if err := DecodeModelJSON(`{"mood":["Rock"],"narrative":"x"}`, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Narrative != "x" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestDecodeModelJSONCodeFence(t *testing.T) {
	content := "```json\n{\"mood\": [\"Rock\"], \"narrative\": \"fenced\"}\n```"
	var out probePayload
	if err := DecodeModelJSON(content, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Narrative != "fenced" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestDecodeModelJSONTrailingCommaAndBareKeys(t *testing.T) {
	content := `Here you go: {mood: ["Rock",], narrative: "loose",}`
	var out probePayload
	if err := DecodeModelJSON(content, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Mood) != 1 || out.Mood[0] != "Rock" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestDecodeModelJSONSingleQuotesAndCurly(t *testing.T) {
	content := "{“mood”: ['Rock'], 'narrative': 'quoted'}"
	var out probePayload
	if err := DecodeModelJSON(content, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Narrative != "quoted" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestDecodeModelJSONSurroundingProse(t *testing.T) {
	content := "Sure! The analysis is {\"mood\": [\"Rock\"], \"narrative\": \"embedded\"} — hope that helps."
	var out probePayload
	if err := DecodeModelJSON(content, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Narrative != "embedded" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestDecodeModelJSONControlChars(t *testing.T) {
	content := "{\"mood\": [\"Rock\"], \"narrative\": \"ctl\x07chars\"}"
	var out probePayload
	if err := DecodeModelJSON(content, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Narrative != "ctlchars" {
		t.Fatalf("unexpected payload: %+v", out)
	}
}

func TestDecodeModelJSONEmpty(t *testing.T) {
	var out probePayload
	if err := DecodeModelJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestExtractBalancedObjectIgnoresBracesInStrings(t *testing.T) {
	content := `{"narrative": "uses } inside", "mood": []} trailing`
	got := extractBalancedObject(content)
	if got != `{"narrative": "uses } inside", "mood": []}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}
