package answer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

var highlightStopWords = map[string]bool{
	"what": true, "is": true, "how": true, "are": true, "the": true, "a": true, "an": true,
	"and": true, "or": true, "but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "?": true, "!": true, ".": true, ",": true,
	"does": true, "do": true, "can": true, "will": true, "would": true, "should": true, "could": true,
}

// HighlightTerms returns the question words worth emphasizing: longer than
// two characters and not stop words. Each word appears once.
func HighlightTerms(question string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range nonWord.Split(question, -1) {
		w = strings.ToLower(strings.TrimSpace(w))
		if highlightStopWords[w] || utf8.RuneCountInString(w) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// HighlightKeywords wraps every case-insensitive whole-word occurrence of
// the question's terms in Markdown bold. Word edges are Unicode aware.
func HighlightKeywords(text, question string) string {
	if text == "" || question == "" {
		return text
	}
	for _, term := range HighlightTerms(question) {
		text = boldWord(text, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(term)))
	}
	return text
}

func boldWord(text string, re *regexp.Regexp) string {
	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if !atWordEdges(text, loc[0], loc[1]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString("**")
		b.WriteString(text[loc[0]:loc[1]])
		b.WriteString("**")
		last = loc[1]
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func atWordEdges(text string, start, end int) bool {
	if r, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordRune(r) {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && isWordRune(r) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
