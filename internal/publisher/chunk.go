package publisher

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into pieces of at most budget bytes. Paragraphs are packed
// greedily; a paragraph over budget is packed line by line, and a line over
// budget is wrapped at spaces (or rune boundaries when it has none). Only the
// separators at chunk boundaries are dropped.
func Chunk(text string, budget int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if budget <= 0 || len(text) <= budget {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	add := func(piece, sep string) {
		if cur.Len() > 0 && cur.Len()+len(sep)+len(piece) <= budget {
			cur.WriteString(sep)
			cur.WriteString(piece)
			return
		}
		flush()
		cur.WriteString(piece)
	}

	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if len(para) <= budget {
			add(para, "\n\n")
			continue
		}
		for i, line := range strings.Split(para, "\n") {
			sep := "\n"
			if i == 0 {
				sep = "\n\n"
			}
			if len(line) <= budget {
				add(line, sep)
				continue
			}
			for j, piece := range wrap(line, budget) {
				if j > 0 {
					sep = " "
				}
				add(piece, sep)
			}
		}
	}
	flush()
	return chunks
}

// wrap cuts a single line into pieces of at most budget bytes.
func wrap(line string, budget int) []string {
	var out []string
	for len(line) > budget {
		if cut := strings.LastIndexByte(line[:budget+1], ' '); cut > 0 {
			out = append(out, line[:cut])
			line = line[cut+1:]
			continue
		}
		cut := budget
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = budget
		}
		out = append(out, line[:cut])
		line = line[cut:]
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}
