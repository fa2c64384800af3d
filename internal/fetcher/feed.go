package fetcher

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

var announceSections = map[string]string{
	"new":           "New submissions",
	"cross":         "Cross submissions",
	"replace":       "Replacement submissions",
	"replace-cross": "Replacement submissions",
}

// ParseFeed harvests entries from an arXiv RSS listing. Items carry their
// announce type, which is mapped onto the same section labels the HTML
// listing uses so one section filter serves both formats.
func (p *Parser) ParseFeed(document string) ([]Entry, error) {
	feed, err := gofeed.NewParser().ParseString(document)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	category := categoryRegexp(p.Archive)
	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		section := feedSection(item)
		if !MatchSection(section, p.Sections) {
			continue
		}

		id := arxivID("", item.Link)
		if id == "" {
			id = arxivID("", strings.Replace(item.GUID, "oai:arXiv.org:", "/abs/", 1))
		}
		if id == "" {
			continue
		}

		var names []string
		for _, a := range item.Authors {
			if a != nil && a.Name != "" {
				names = append(names, a.Name)
			}
		}
		authors := cleanText(strings.Join(names, ", "))

		abstract := item.Description
		if _, after, ok := strings.Cut(abstract, "Abstract:"); ok {
			abstract = after
		}

		entries = append(entries, Entry{
			ID:          id,
			Title:       cleanText(item.Title),
			AuthorsRaw:  authors,
			FirstAuthor: firstAuthor(authors),
			Abstract:    cleanText(abstract),
			Link:        p.link(id),
			Category:    matchCategory(category, strings.Join(item.Categories, " "), p.Archive),
			Section:     section,
		})
	}
	return entries, nil
}

func feedSection(item *gofeed.Item) string {
	if ext, ok := item.Extensions["arxiv"]; ok {
		if vals := ext["announce_type"]; len(vals) > 0 {
			if label, ok := announceSections[strings.TrimSpace(vals[0].Value)]; ok {
				return label
			}
		}
	}
	return announceSections["new"]
}
