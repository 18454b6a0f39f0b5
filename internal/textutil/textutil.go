// Package textutil holds the small text-normalization helpers shared by the
// extraction and summary pipelines. Model output is untrusted free text;
// these functions make it tractable without trying to be a markdown parser.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// StripCodeFences removes a leading/trailing markdown code fence (``` or
// ```json etc.) and surrounding whitespace from a model reply. Text without
// fences is returned trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence, e.g. "json".
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(s[:idx])
		if firstLine != "" && !strings.ContainsAny(firstLine, "{[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NormalizeHeaders flattens the markdown variation models produce around
// section headers: bold markers are dropped and any deeper header level is
// collapsed to a single '#', so "## **Alerts**" and "# Alerts" read the same
// to a marker-based splitter.
func NormalizeHeaders(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	for strings.Contains(s, "##") {
		s = strings.ReplaceAll(s, "##", "#")
	}
	return s
}

// Truncate bounds s to at most limit bytes. The cut backs off to the nearest
// rune boundary so multi-byte text never ends in an invalid partial rune; the
// budget is approximate and truncation is silent by contract.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
