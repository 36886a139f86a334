package transform

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/storefront/backend/internal/domain/catalog"
)

var (
	scriptOrStyle  = regexp.MustCompile(`(?is)<(?:script|style)[^>]*>.*?</(?:script|style)\s*>`)
	paragraphBreak = regexp.MustCompile(`(?i)</\s*(?:p|div|h[1-6]|ul|ol|table|tr)\s*>|<\s*(?:p|div|h[1-6]|ul|ol|table)(?:\s[^>]*)?>`)
	lineBreak      = regexp.MustCompile(`(?i)<\s*br\s*/?\s*>`)
	listItemOpen   = regexp.MustCompile(`(?i)<\s*li(?:\s[^>]*)?>`)
	anyTag         = regexp.MustCompile(`<[^>]*>`)
	blankLines     = regexp.MustCompile(`\n\s*\n`)
	bulletPrefix   = regexp.MustCompile(`^(?:[-*•·]|\d+[.)])\s+`)
)

// Describe converts a raw, possibly HTML description into typed blocks.
// Paragraph text longer than the block limit is split at sentence boundaries.
// An empty result becomes a single placeholder paragraph.
func (t *Transformer) Describe(raw string) []catalog.DescriptionBlock {
	text := stripMarkup(raw)

	var blocks []catalog.DescriptionBlock
	for _, chunk := range blankLines.Split(text, -1) {
		lines := nonEmptyLines(chunk)
		if len(lines) == 0 {
			continue
		}
		if items, ok := listItems(lines); ok {
			for _, group := range packList(items, t.cfg.MaxBlockLength) {
				blocks = append(blocks, catalog.DescriptionBlock{Type: catalog.BlockList, Items: group})
			}
			continue
		}
		paragraph := collapseSpaces(strings.Join(lines, " "))
		for _, part := range splitToLimit(paragraph, t.cfg.MaxBlockLength) {
			blocks = append(blocks, catalog.DescriptionBlock{Type: catalog.BlockParagraph, Text: part})
		}
	}

	if len(blocks) == 0 {
		return []catalog.DescriptionBlock{{Type: catalog.BlockParagraph, Text: t.cfg.PlaceholderBlock}}
	}
	return blocks
}

// ShortDescription returns the first paragraph truncated for listing cards
func (t *Transformer) ShortDescription(blocks []catalog.DescriptionBlock) string {
	for _, b := range blocks {
		if b.Type == catalog.BlockParagraph && b.Text != "" {
			return truncateWords(b.Text, t.cfg.ShortDescLength, ellipsis)
		}
	}
	for _, b := range blocks {
		if b.Type == catalog.BlockList && len(b.Items) > 0 {
			return truncateWords(strings.Join(b.Items, ", "), t.cfg.ShortDescLength, ellipsis)
		}
	}
	return ""
}

// stripMarkup turns HTML into plain text with blank lines between paragraphs
func stripMarkup(raw string) string {
	s := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)
	s = scriptOrStyle.ReplaceAllString(s, "")
	s = paragraphBreak.ReplaceAllString(s, "\n\n")
	s = lineBreak.ReplaceAllString(s, "\n")
	s = listItemOpen.ReplaceAllString(s, "\n- ")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.ReplaceAll(s, "\u00a0", " ")
}

func nonEmptyLines(chunk string) []string {
	var lines []string
	for _, line := range strings.Split(chunk, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// listItems reports whether every line is a bullet and returns the items without markers
func listItems(lines []string) ([]string, bool) {
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		loc := bulletPrefix.FindStringIndex(line)
		if loc == nil {
			return nil, false
		}
		if item := collapseSpaces(line[loc[1]:]); item != "" {
			items = append(items, item)
		}
	}
	return items, len(items) > 0
}

// packList groups items into lists whose combined item text stays within limit runes.
// An item above the limit is split into several items first.
func packList(items []string, limit int) [][]string {
	var (
		groups  [][]string
		current []string
		size    int
	)
	for _, item := range items {
		for _, piece := range splitToLimit(item, limit) {
			n := utf8.RuneCountInString(piece)
			if len(current) > 0 && size+n > limit {
				groups = append(groups, current)
				current, size = nil, 0
			}
			current = append(current, piece)
			size += n
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// splitToLimit packs sentences into chunks of at most limit runes.
// A single sentence above the limit is split at word boundaries.
func splitToLimit(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLongSentence(sentence, limit) {
			if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(piece) > limit {
				flush()
			}
			if current.Len() > 0 {
				current.WriteByte(' ')
			}
			current.WriteString(piece)
		}
	}
	flush()
	return chunks
}

func splitLongSentence(sentence string, limit int) []string {
	var out []string
	for utf8.RuneCountInString(sentence) > limit {
		runes := []rune(sentence)
		cut := limit
		for i := limit; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(runes[:cut])))
		sentence = strings.TrimSpace(string(runes[cut:]))
	}
	if sentence != "" {
		out = append(out, sentence)
	}
	return out
}

// splitSentences breaks text after '.', '!' or '?' followed by whitespace
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
