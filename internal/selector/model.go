package selector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/generator"
)

const selectionSystem = "You are an astrophysics research assistant. You pick the papers most relevant " +
	"to the stated research interests and answer with paper numbers only."

// maxTitleBytes bounds each title in the numbered list.
const maxTitleBytes = 200

var indexRegex = regexp.MustCompile(`\b(\d+)\b`)

// ModelStrategy asks the generator to pick papers from a numbered title list.
type ModelStrategy struct {
	Generator generator.Generator
	Interests string
	// Request carries the budgets; System and Prompt are filled per call.
	Request generator.Request
}

func (m *ModelStrategy) Name() string { return "model" }

func (m *ModelStrategy) Select(ctx context.Context, entries []fetcher.Entry, limit int) ([]fetcher.Entry, error) {
	req := m.Request
	req.System = selectionSystem
	req.Prompt = m.prompt(entries, limit)

	raw, err := m.Generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("selector: model: %w", err)
	}

	indices := ParseIndices(generator.StripEndOfTurn(raw), len(entries))
	if len(indices) > limit {
		indices = indices[:limit]
	}
	out := make([]fetcher.Entry, 0, len(indices))
	for _, i := range indices {
		out = append(out, entries[i])
	}
	return out, nil
}

func (m *ModelStrategy) prompt(entries []fetcher.Entry, limit int) string {
	var sb strings.Builder
	if m.Interests != "" {
		fmt.Fprintf(&sb, "Research interests: %s\n\n", m.Interests)
	}
	sb.WriteString("Today's paper titles:\n")
	for i, e := range entries {
		title := e.Title
		if len(title) > maxTitleBytes {
			title = strings.ToValidUTF8(title[:maxTitleBytes], "")
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, title)
	}
	fmt.Fprintf(&sb, "\nReply with the numbers of the %d most relevant papers, separated by commas. Numbers only.", limit)
	return sb.String()
}

// ParseIndices extracts every integer from text, keeps the distinct ones that
// are valid 1-based positions in a list of n items, and returns them as
// ascending 0-based indices.
func ParseIndices(text string, n int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, m := range indexRegex.FindAllStringSubmatch(text, -1) {
		v, err := strconv.Atoi(m[1])
		if err != nil || v < 1 || v > n || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v-1)
	}
	sort.Ints(out)
	return out
}
