package transform

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	xtransform "golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug builds a URL-safe slug from the product name plus a short hash of the source id.
// The hash keeps slugs unique across listings with identical titles.
func (t *Transformer) Slug(name, sourceProductID string) string {
	s := strings.ToLower(foldDiacritics(name))
	s = strings.Trim(nonSlugChars.ReplaceAllString(s, "-"), "-")
	if len(s) > t.cfg.SlugPrefixLength {
		s = strings.TrimRight(s[:t.cfg.SlugPrefixLength], "-")
	}
	if s == "" {
		s = "product"
	}
	return s + "-" + strings.ToLower(shortHash(6, sourceProductID))
}

// foldDiacritics maps "Café" to "Cafe"
func foldDiacritics(s string) string {
	chain := xtransform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := xtransform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}

// shortHash returns the first n upper-case hex digits of the FNV-1a hash of parts
func shortHash(n int, parts ...string) string {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte(p))
	}
	sum := fmt.Sprintf("%016X", h.Sum64())
	if n > len(sum) {
		n = len(sum)
	}
	return sum[:n]
}
