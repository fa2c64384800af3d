package summarizer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
)

func longAbstract(n int) string {
	words := []string{"galaxy", "outflow", "metallicity", "spectrum", "ionized", "gas", "kinematics", "survey"}
	var sb strings.Builder
	for i := 0; sb.Len() < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(words[i%len(words)])
	}
	return sb.String()[:n]
}

func TestTruncateWordBoundary(t *testing.T) {
	s := longAbstract(1000)
	got := Truncate(s, 500)

	if len(got) > 500 {
		t.Fatalf("Expected at most 500 bytes, got %d", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("Expected ellipsis suffix, got %q", got[len(got)-10:])
	}
	body := strings.TrimSuffix(got, "...")
	if !strings.HasPrefix(s, body) {
		t.Fatalf("Expected truncated text to be a prefix of the input")
	}
	if next := s[len(body)]; next != ' ' {
		t.Errorf("Expected cut on a word boundary, next byte is %q", next)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{"within cap", "  Short title  ", 150, "Short title"},
		{"exact cap", "abcde", 5, "abcde"},
		{"cut on space", "one two three four", 12, "one two..."},
		{"boundary at cut", "one two three", 10, "one two..."},
		{"single long word", "abcdefghijklmnop", 10, "abcdefg..."},
		{"tiny cap", "abcdefghijklmnop", 2, ".."},
		{"zero cap", "abcdefghijklmnop", 0, ""},
		{"negative cap", "abcdefghijklmnop", -5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.s, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateMultibyte(t *testing.T) {
	got := Truncate(strings.Repeat("é", 20), 10)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}
	if len(got) > 10 {
		t.Errorf("Expected at most 10 bytes, got %d", len(got))
	}
}

func TestClean(t *testing.T) {
	report := "**Paper: Outflows in NGC 1068**\nAuthors: A. B. et al.\nLink: https://arxiv.org/abs/2510.00001\nSummary: Fast winds."

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"already clean", report, report},
		{"preamble", "Sure! Here is the briefing.\n\n" + report, report},
		{"end of turn", report + "<|im_end|>\n<|im_start|>user\nagain", report},
		{"prompt echo", report + "\n\nYour task is to write a technical briefing", report},
		{"highlights first", "intro\n**Daily Highlights:** Winds everywhere.", "**Daily Highlights:** Winds everywhere."},
		{"no marker", "  nothing useful  ", "nothing useful"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if Valid("**Paper: short**") {
		t.Error("Expected short output to be invalid")
	}
	if Valid(strings.Repeat("words ", 40)) {
		t.Error("Expected output without paper marker to be invalid")
	}
	if !Valid("**Paper: X**\n" + strings.Repeat("detail ", 20)) {
		t.Error("Expected long output with marker to be valid")
	}
}

func TestFallbackReport(t *testing.T) {
	candidates := []fetcher.Entry{
		{Title: "Black hole   mass scaling", FirstAuthor: "J. Smith", Link: "https://arxiv.org/abs/2510.00001"},
		{Title: "Untitled draft", Link: "https://arxiv.org/abs/2510.00002"},
	}

	got := FallbackReport(candidates, 150)

	lines := strings.Split(got, "\n")
	if !strings.Contains(lines[0], "Summary generation failed") {
		t.Errorf("Expected failure preamble, got %q", lines[0])
	}
	for _, want := range []string{
		"• **Black hole mass scaling** (J. Smith et al.) <https://arxiv.org/abs/2510.00001>",
		"• **Untitled draft** <https://arxiv.org/abs/2510.00002>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, got)
		}
	}
}
