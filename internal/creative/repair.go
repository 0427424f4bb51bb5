package creative

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeModelJSON decodes a chat-completion payload into target. It tries the
// raw content first, then a repaired form: code fences stripped, curly quotes
// straightened, the largest balanced object extracted, trailing commas
// removed, bare keys quoted, single-quoted strings converted, control
// characters dropped. A final jsonrepair pass catches what the targeted fixes
// miss.
func DecodeModelJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	if err := json.Unmarshal([]byte(trimmed), target); err == nil {
		return nil
	}

	repaired := repairPayload(trimmed)
	if err := json.Unmarshal([]byte(repaired), target); err == nil {
		return nil
	}

	fixed, err := jsonrepair.JSONRepair(repaired)
	if err != nil {
		return errors.New("payload not repairable")
	}
	return json.Unmarshal([]byte(fixed), target)
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

func repairPayload(content string) string {
	out := stripCodeFence(content)
	out = normalizeQuotes(out)
	out = extractBalancedObject(out)
	out = stripControlChars(out)
	out = trailingCommaRe.ReplaceAllString(out, "$1")
	out = bareKeyRe.ReplaceAllString(out, `$1"$2":`)
	out = singleToDoubleQuotes(out)
	return strings.TrimSpace(out)
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func normalizeQuotes(content string) string {
	replacer := strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
	return replacer.Replace(content)
}

// extractBalancedObject returns the largest balanced {...} substring,
// tracking string literals so braces inside values do not miscount.
func extractBalancedObject(content string) string {
	start := strings.Index(content, "{")
	if start < 0 {
		return content
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	// Unbalanced: fall back to the last closing brace.
	if end := strings.LastIndex(content, "}"); end > start {
		return content[start : end+1]
	}
	return content[start:]
}

func stripControlChars(content string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, content)
}

// singleToDoubleQuotes rewrites single-quoted string literals outside of
// double-quoted ones.
func singleToDoubleQuotes(content string) string {
	var b strings.Builder
	b.Grow(len(content))
	inDouble := false
	inSingle := false
	escaped := false
	for i := 0; i < len(content); i++ {
		ch := content[i]
		switch {
		case escaped:
			escaped = false
			b.WriteByte(ch)
		case ch == '\\':
			escaped = true
			b.WriteByte(ch)
		case inDouble:
			if ch == '"' {
				inDouble = false
			}
			b.WriteByte(ch)
		case inSingle:
			if ch == '\'' {
				inSingle = false
				b.WriteByte('"')
			} else if ch == '"' {
				b.WriteString(`\"`)
			} else {
				b.WriteByte(ch)
			}
		case ch == '"':
			inDouble = true
			b.WriteByte(ch)
		case ch == '\'':
			inSingle = true
			b.WriteByte('"')
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
