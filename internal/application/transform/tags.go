package transform

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// tagSpecificationKeys are the specification keys whose values become tags
var tagSpecificationKeys = []string{"material", "fabric", "style", "pattern", "season", "occasion"}

var (
	specValueSeparators = regexp.MustCompile(`[,/;|]+`)
	wordToken           = regexp.MustCompile(`[\p{L}\p{N}]+`)
	digitsOnly          = regexp.MustCompile(`^\p{N}+$`)
)

var stopWords = map[string]struct{}{
	"with": {}, "from": {}, "that": {}, "this": {}, "your": {}, "for": {}, "and": {}, "the": {},
	"kids": {}, "women": {}, "womens": {}, "mens": {}, "unisex": {}, "size": {}, "sizes": {},
	"color": {}, "colors": {}, "style": {}, "piece": {}, "pieces": {}, "pcs": {}, "set": {},
	"store": {}, "shop": {}, "official": {}, "item": {}, "items": {},
}

// Tags derives lowercase tags from selected specification values followed by title keywords.
// Duplicates and promotional words are dropped and the result is capped at the configured size.
func (t *Transformer) Tags(specs map[string]string, rawTitle string) []string {
	tags := make([]string, 0, t.cfg.MaxTags)
	seen := make(map[string]struct{})
	add := func(tag string) bool {
		tag = collapseSpaces(strings.ToLower(tag))
		if tag == "" || utf8.RuneCountInString(tag) > 40 {
			return true
		}
		if _, dup := seen[tag]; dup {
			return true
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		return len(tags) < t.cfg.MaxTags
	}

	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, want := range tagSpecificationKeys {
		for _, k := range keys {
			if !strings.EqualFold(strings.TrimSpace(k), want) {
				continue
			}
			for _, v := range specValueSeparators.Split(specs[k], -1) {
				if !add(v) {
					return tags
				}
			}
		}
	}

	for _, word := range wordToken.FindAllString(strings.ToLower(rawTitle), -1) {
		if !t.keyword(word) {
			continue
		}
		if !add(word) {
			return tags
		}
	}
	return tags
}

// keyword reports whether a title word is specific enough to be a tag
func (t *Transformer) keyword(word string) bool {
	if utf8.RuneCountInString(word) < 4 || digitsOnly.MatchString(word) {
		return false
	}
	if _, stop := stopWords[word]; stop {
		return false
	}
	_, promo := t.promoWords[word]
	return !promo
}
