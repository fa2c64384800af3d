package summarizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/generator"
)

const (
	ellipsis = "..."

	paperMarker      = "**Paper:"
	highlightsMarker = "**Daily Highlights:**"

	// minValidBytes is the shortest output accepted as a real summary.
	minValidBytes = 100
)

// promptEchoes are fragments of the user prompt; output from the first one
// onward is the model repeating its instructions.
var promptEchoes = []string{
	"Today's arXiv listing",
	"Your task is",
	"Use exactly this format",
}

// Truncate shortens s to at most max bytes. Longer strings are cut at the last
// whole word that fits and end with "...". A non-positive max yields "".
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return ellipsis[:max]
	}

	cut := max - len(ellipsis)
	head := s[:cut]
	if s[cut] != ' ' {
		if i := strings.LastIndexAny(head, " \t\n"); i > 0 {
			head = head[:i]
		} else {
			for len(head) > 0 && !utf8.ValidString(head) {
				head = head[:len(head)-1]
			}
		}
	}
	return strings.TrimRight(head, " \t\n,;:") + ellipsis
}

// Clean strips end-of-turn markers, any preamble before the first report
// record, and echoed prompt text.
func Clean(raw string) string {
	text := generator.StripEndOfTurn(raw)

	start := -1
	for _, m := range []string{paperMarker, highlightsMarker} {
		if i := strings.Index(text, m); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start > 0 {
		text = text[start:]
	}

	for _, echo := range promptEchoes {
		if i := strings.Index(text, echo); i > 0 {
			text = text[:i]
		}
	}
	return strings.TrimSpace(text)
}

// Valid reports whether cleaned output looks like a report.
func Valid(text string) bool {
	return len(text) >= minValidBytes && strings.Contains(text, paperMarker)
}

// FallbackReport lists the candidates one per line with title, first author
// and link.
func FallbackReport(candidates []fetcher.Entry, titleChars int) string {
	var sb strings.Builder
	sb.WriteString("⚠️ **Summary generation failed.** Selected papers for today:\n\n")
	for _, c := range candidates {
		title := strings.Join(strings.Fields(c.Title), " ")
		if titleChars > 0 {
			title = Truncate(title, titleChars)
		}
		if c.FirstAuthor != "" {
			fmt.Fprintf(&sb, "• **%s** (%s et al.) <%s>\n", title, c.FirstAuthor, c.Link)
		} else {
			fmt.Fprintf(&sb, "• **%s** <%s>\n", title, c.Link)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
