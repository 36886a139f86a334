package transform

import (
	"strings"
	"unicode/utf8"
)

const minSEOSentenceLength = 20

// SEOTitle appends the brand suffix to the name, shortening the name to keep within the limit
func (t *Transformer) SEOTitle(name string) string {
	if t.cfg.BrandName == "" {
		return truncateWords(name, t.cfg.SEOTitleLength, "")
	}
	suffix := " | " + t.cfg.BrandName
	room := t.cfg.SEOTitleLength - utf8.RuneCountInString(suffix)
	if room <= 0 {
		return truncateWords(name, t.cfg.SEOTitleLength, "")
	}
	return truncateWords(name, room, "") + suffix
}

// SEODescription uses the first meaningful sentence of the raw description followed by
// the call to action. The name is used when no sentence qualifies.
func (t *Transformer) SEODescription(name, rawDescription string) string {
	lead := ""
	text := collapseSpaces(strings.ReplaceAll(stripMarkup(rawDescription), "\n", " "))
	for _, sentence := range splitSentences(text) {
		if utf8.RuneCountInString(sentence) >= minSEOSentenceLength {
			lead = sentence
			break
		}
	}
	if lead == "" {
		lead = name + "."
	}
	if !strings.ContainsAny(lead[len(lead)-1:], ".!?") {
		lead += "."
	}

	out := lead
	if t.cfg.CallToAction != "" {
		out = lead + " " + t.cfg.CallToAction
	}
	if utf8.RuneCountInString(out) > t.cfg.SEODescriptionLength {
		if utf8.RuneCountInString(lead) <= t.cfg.SEODescriptionLength {
			return lead
		}
		return truncateWords(lead, t.cfg.SEODescriptionLength, ellipsis)
	}
	return out
}
