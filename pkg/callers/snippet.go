package callers

import (
	"strings"
	"unicode/utf8"
)

// Snippet returns line trimmed and cut to at most width bytes around col.
// Cut sides are marked with "...". Cuts never split a UTF-8 sequence.
func Snippet(line string, col, width int) string {
	trimmed := strings.TrimLeft(line, " \t")
	col -= len(line) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r")
	if width <= 0 || len(trimmed) <= width {
		return trimmed
	}
	if col < 0 {
		col = 0
	}

	start := col - width/4
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(trimmed) {
		end = len(trimmed)
		start = end - width
	}
	for start < end && !utf8.RuneStart(trimmed[start]) {
		start++
	}
	for end < len(trimmed) && end > start && !utf8.RuneStart(trimmed[end]) {
		end--
	}

	out := trimmed[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(trimmed) {
		out += "..."
	}
	return out
}
