package fetcher

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

const defaultBaseURL = "https://arxiv.org"

// Parser extracts entries from an arXiv listing. The zero value accepts every
// section and links entries to arxiv.org.
type Parser struct {
	// BaseURL is prefixed to "/abs/<id>" to build entry links.
	BaseURL string
	// Archive is the parent category, e.g. "astro-ph". Sub-categories are
	// matched as "<archive>.XX".
	Archive string
	// Sections lists accepted heading prefixes, compared case-insensitively.
	Sections []string
}

type termPair struct {
	dt, dd *html.Node
}

// ParseHTML adapts Parse to ParseFunc.
func (p *Parser) ParseHTML(document string) ([]Entry, error) {
	return p.Parse(document), nil
}

// Parse harvests every entry under the accepted section headings, in page
// order. Items without an abstract link are skipped; a page with no matching
// section yields an empty result.
func (p *Parser) Parse(document string) []Entry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil
	}

	category := categoryRegexp(p.Archive)
	var entries []Entry
	doc.Find("h3").Each(func(_ int, h *goquery.Selection) {
		heading := cleanText(h.Text())
		if !MatchSection(heading, p.Sections) {
			return
		}
		section := sectionLabel(heading)
		for _, pair := range listPairs(h.Get(0)) {
			if e, ok := p.entryFrom(pair, section, category); ok {
				entries = append(entries, e)
			}
		}
	})
	return entries
}

func (p *Parser) entryFrom(pair termPair, section string, category *regexp.Regexp) (Entry, bool) {
	term := goquery.NewDocumentFromNode(pair.dt).Selection
	anchor := term.Find(`a[href*="/abs/"]`).First()
	href, ok := anchor.Attr("href")
	if !ok {
		return Entry{}, false
	}
	id := arxivID(cleanText(anchor.Text()), href)
	if id == "" {
		return Entry{}, false
	}

	desc := goquery.NewDocumentFromNode(pair.dd).Selection
	authors := stripLabel(cleanText(desc.Find(".list-authors").First().Text()), "Authors:")

	return Entry{
		ID:          id,
		Title:       stripLabel(cleanText(desc.Find(".list-title").First().Text()), "Title:"),
		AuthorsRaw:  authors,
		FirstAuthor: firstAuthor(authors),
		Abstract:    stripLabel(cleanText(desc.Find("p.mathjax").First().Text()), "Abstract:"),
		Link:        p.link(id),
		Category:    matchCategory(category, desc.Find(".list-subjects").First().Text(), p.Archive),
		Section:     section,
	}, true
}

func (p *Parser) link(id string) string {
	base := p.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return strings.TrimSuffix(base, "/") + "/abs/" + id
}

// listPairs finds the dt/dd pairs that belong to a section heading. The usual
// layout is a heading followed by its own dl; newer pages put the heading
// inside the dl, in which case the pairs run until the next heading.
func listPairs(heading *html.Node) []termPair {
	if dl := nextSiblingUntil(heading, "dl", "h3"); dl != nil {
		return pairTerms(dl.FirstChild, "")
	}
	if heading.Parent != nil && heading.Parent.DataAtom == atom.Dl {
		return pairTerms(heading.NextSibling, "h3")
	}
	return nil
}

// nextSiblingUntil returns the first element sibling after n named want, or
// nil if an element named stop comes first.
func nextSiblingUntil(n *html.Node, want, stop string) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode {
			continue
		}
		if s.Data == stop {
			return nil
		}
		if s.Data == want {
			return s
		}
	}
	return nil
}

// pairTerms walks element siblings from first, pairing each dt with the dd
// after it. An element named stop ends the walk.
func pairTerms(first *html.Node, stop string) []termPair {
	var pairs []termPair
	var dt *html.Node
	for n := first; n != nil; n = n.NextSibling {
		if n.Type != html.ElementNode {
			continue
		}
		if stop != "" && n.Data == stop {
			break
		}
		switch n.Data {
		case "dt":
			dt = n
		case "dd":
			if dt != nil {
				pairs = append(pairs, termPair{dt: dt, dd: n})
				dt = nil
			}
		}
	}
	return pairs
}

// MatchSection reports whether a heading starts with one of the accepted
// prefixes. An empty prefix list accepts everything.
func MatchSection(heading string, sections []string) bool {
	if len(sections) == 0 {
		return true
	}
	h := strings.ToLower(strings.TrimSpace(heading))
	for _, s := range sections {
		if s != "" && strings.HasPrefix(h, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// sectionLabel drops the "(showing N of M entries)" tail from a heading.
func sectionLabel(heading string) string {
	if i := strings.Index(heading, "("); i > 0 {
		return strings.TrimSpace(heading[:i])
	}
	return heading
}

func arxivID(text, href string) string {
	if id, ok := strings.CutPrefix(text, "arXiv:"); ok && id != "" {
		return strings.TrimSpace(id)
	}
	_, id, _ := strings.Cut(href, "/abs/")
	id, _, _ = strings.Cut(id, "?")
	id, _, _ = strings.Cut(id, "#")
	return strings.Trim(id, "/ ")
}

func firstAuthor(authors string) string {
	first, _, _ := strings.Cut(authors, ",")
	return strings.TrimSpace(first)
}

func categoryRegexp(archive string) *regexp.Regexp {
	if archive == "" {
		return regexp.MustCompile(`\b[a-z][a-z-]*\.[A-Z]{2}\b`)
	}
	return regexp.MustCompile(regexp.QuoteMeta(archive) + `\.[A-Z]{2}\b`)
}

func matchCategory(re *regexp.Regexp, subjects, archive string) string {
	if m := re.FindString(subjects); m != "" {
		return m
	}
	if archive != "" {
		return archive
	}
	return "unknown"
}

func stripLabel(s, label string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, label))
}

// cleanText collapses whitespace runs and normalizes to NFC.
func cleanText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
