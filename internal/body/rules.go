package body

import (
	"strings"
	"unicode"

	"github.com/salescopilot/amsgen/internal/extract"
)

// The hard contract on the narrative body: combined glyph count within
// [100,150], counting every non-whitespace rune including punctuation.
const (
	minGlyphs = 100
	maxGlyphs = 150
)

// Sentinel phrases the body must use instead of fabricating missing facts.
var sentinelPhrases = []string{"待确认", "未获取"}

// CountGlyphs counts non-whitespace runes, Chinese-style: punctuation
// counts, spaces and newlines don't.
func CountGlyphs(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// ValidLength reports whether the two paragraphs together satisfy the
// [100,150] glyph budget.
func ValidLength(p1, p2 string) bool {
	total := CountGlyphs(p1 + p2)
	return total >= minGlyphs && total <= maxGlyphs
}

// SentinelSatisfied enforces the no-fabrication gate: if any of the key
// facts is missing or unknown in the record, the body text must carry a
// sentinel phrase somewhere. Text that reads complete while the record has
// gaps fails even when the length passes.
func SentinelSatisfied(rec *extract.Record, text string) bool {
	required := []string{
		rec.Facts.CustomerTitle,
		rec.Facts.ConsultModel,
		rec.Facts.IntentLevel,
	}
	hasMissing := false
	for _, v := range required {
		if v == "" || v == extract.Unknown {
			hasMissing = true
			break
		}
	}
	if !hasMissing {
		return true
	}
	for _, phrase := range sentinelPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// SplitParagraphs takes the first non-blank line as p1 and the second line
// as p2; if more lines follow they are joined into p2.
func SplitParagraphs(text string) (string, string) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	switch len(lines) {
	case 0:
		return "", ""
	case 1:
		return lines[0], ""
	case 2:
		return lines[0], lines[1]
	default:
		return lines[0], strings.Join(lines[1:], "")
	}
}
