// Package tokenizer turns source text, identifiers, and queries into search
// terms. It splits on whitespace and punctuation, decomposes snake_case and
// camelCase identifiers (keeping the whole identifier as an extra term),
// lower-cases everything, and drops short, numeric, and stop-word pieces.
package tokenizer

import (
	"strings"
	"unicode"
)

const minTermLen = 2

// stopWords are keywords shared by most languages plus common English words.
// They appear in nearly every symbol and carry no ranking signal.
var stopWords = map[string]struct{}{
	"fn": {}, "let": {}, "const": {}, "var": {}, "if": {}, "else": {},
	"return": {}, "pub": {}, "use": {}, "mod": {}, "impl": {}, "struct": {},
	"enum": {}, "trait": {}, "type": {}, "async": {}, "await": {}, "match": {},
	"true": {}, "false": {}, "null": {}, "undefined": {}, "void": {}, "new": {},
	"class": {}, "extends": {}, "import": {}, "export": {}, "from": {},
	"default": {}, "function": {}, "this": {}, "self": {}, "super": {},
	"while": {}, "for": {}, "try": {}, "catch": {}, "throw": {}, "mut": {},
	"ref": {}, "priv": {}, "crate": {},
	"the": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "is": {}, "it": {}, "be": {}, "was": {}, "are": {},
	"has": {}, "have": {}, "had": {}, "that": {}, "of": {}, "as": {},
	"with": {}, "not": {}, "do": {}, "by": {},
}

// Tokenize breaks text into lower-cased search terms. Order is preserved and
// duplicates are kept, since term frequency matters to the ranker.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(text, isSeparator)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		for _, piece := range splitIdentifier(word) {
			lower := strings.ToLower(piece)
			if keep(lower) {
				terms = append(terms, lower)
			}
		}
	}
	return terms
}

// IsStopWord reports whether term is dropped by Tokenize.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

func keep(term string) bool {
	if len(term) < minTermLen {
		return false
	}
	if IsStopWord(term) {
		return false
	}
	return !allDigits(term)
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '.', ',', ';', ':', '!', '?', '(', ')', '[', ']', '{', '}',
		'"', '\'', '`', '/', '\\', '|', '<', '>', '@', '#', '$', '%',
		'^', '&', '*', '+', '=', '~', '-':
		return true
	}
	return false
}

// splitIdentifier decomposes a single word. "getUserById" yields
// get, User, By, Id and the whole word; "get_user" yields get, user and the
// whole word. Words with one segment come back unchanged.
func splitIdentifier(word string) []string {
	var underscoreParts []string
	for _, p := range strings.Split(word, "_") {
		if p != "" {
			underscoreParts = append(underscoreParts, p)
		}
	}

	if len(underscoreParts) > 1 {
		parts := make([]string, 0, len(underscoreParts)+2)
		for _, p := range underscoreParts {
			parts = append(parts, splitCamel(p)...)
		}
		return append(parts, word)
	}

	camel := splitCamel(word)
	if len(camel) > 1 {
		return append(camel, word)
	}
	return camel
}

// splitCamel splits on lower→upper transitions only, so acronyms such as
// "HTTPServer" stay in one piece.
func splitCamel(s string) []string {
	var result []string
	var current strings.Builder
	prevLower := false
	for _, r := range s {
		if unicode.IsUpper(r) && prevLower && current.Len() > 0 {
			result = append(result, current.String())
			current.Reset()
		}
		prevLower = unicode.IsLower(r)
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
