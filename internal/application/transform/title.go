package transform

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/storefront/backend/internal/domain/catalog"
)

const ellipsis = "..."

var (
	storeSuffixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:official|flagship)\s+(?:store|shop)\b`),
		regexp.MustCompile(`(?i)\s+(?:by|from)\s+[\p{L}\p{N}&']+\s+(?:store|shop)\s*$`),
		regexp.MustCompile(`\s+\|\s*[^|]*$`),
	}
	disallowedTitleChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-&,.'/()+%]`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
	yearToken            = regexp.MustCompile(`\b20\d{2}\b`)
	danglingSeparators   = regexp.MustCompile(`(\s[-,/&]\s*){2,}`)
)

// CleanTitle strips promotional noise and store suffixes from a marketplace title,
// title-cases it and truncates it at a word boundary.
// It returns catalog.PlaceholderName when nothing alphanumeric survives.
func (t *Transformer) CleanTitle(raw string) string {
	s := html.UnescapeString(raw)
	if t.promo != nil {
		s = t.promo.ReplaceAllString(s, " ")
	}
	s = yearToken.ReplaceAllString(s, " ")
	for _, p := range storeSuffixPatterns {
		s = p.ReplaceAllString(s, " ")
	}
	s = disallowedTitleChars.ReplaceAllString(s, " ")
	s = collapseSpaces(s)
	s = strings.Trim(s, " -,./&+")
	// Separators left behind by removed terms, e.g. "Romper - - Soft"
	s = collapseSpaces(danglingSeparators.ReplaceAllString(s, " - "))

	if !hasAlphanumeric(s) {
		return catalog.PlaceholderName
	}
	s = titleCase(s)
	return truncateWords(s, t.cfg.MaxTitleLength, ellipsis)
}

// titleCase upper-cases word initials while keeping acronyms such as "USB".
// Titles shouted in all caps are lowered first.
func titleCase(s string) string {
	if mostlyUpper(s) {
		s = strings.ToLower(s)
	}
	return cases.Title(language.English, cases.NoLower).String(s)
}

func mostlyUpper(s string) bool {
	upper, letters := 0, 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return letters > 3 && upper*10 >= letters*7
}

func hasAlphanumeric(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// truncateWords shortens s to at most max runes, cutting at the last whitespace
// and appending marker. Strings that fit are returned unchanged.
func truncateWords(s string, max int, marker string) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	limit := max - utf8.RuneCountInString(marker)
	if limit <= 0 {
		return string([]rune(s)[:max])
	}
	runes := []rune(s)
	cut := limit
	for i := limit; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	head := strings.TrimRight(string(runes[:cut]), " -,.;:/&")
	if head == "" {
		head = string(runes[:limit])
	}
	return head + marker
}
