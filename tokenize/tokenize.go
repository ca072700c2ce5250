// Package tokenize normalizes text into index terms.
//
// Alphanumeric/underscore runs are candidate words; every other character is
// a delimiter. Candidate words split further on underscores (snake_case) and
// on lowercase-to-uppercase transitions (camelCase), and each part is
// lowercased. Parts shorter than two characters or present in the stop-word
// set are dropped.
package tokenize

import "strings"

// Func is the signature of a tokenizer, for callers that accept a custom one.
type Func func(text string) []string

// stopWords holds common English function words plus the reserved keywords of
// the indexed language. Terms in this set never become index terms.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "not": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "shall": {}, "should": {}, "may": {}, "might": {},
	"can": {}, "could": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"it": {}, "its": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {},
	"for": {}, "with": {}, "by": {}, "from": {}, "as": {}, "into": {},
	"through": {}, "if": {}, "then": {}, "else": {}, "when": {}, "but": {},
	"so": {}, "no": {}, "all": {}, "each": {}, "every": {}, "both": {},
	"few": {}, "more": {}, "most": {}, "other": {}, "some": {}, "such": {},

	"func": {}, "let": {}, "var": {}, "pub": {}, "mut": {}, "ref": {},
	"type": {}, "use": {}, "mod": {}, "return": {}, "self": {},
	"true": {}, "false": {},
}

// IsStopWord reports whether term is in the stop-word set.
// The term is expected to be lowercase already.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// Tokenize splits text into normalized terms. It is deterministic and never
// returns a stop word or a term shorter than two characters.
func Tokenize(text string) []string {
	var terms []string

	start := -1
	for i := 0; i < len(text); i++ {
		if isWordByte(text[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			terms = splitCompound(text[start:i], terms)
			start = -1
		}
	}
	if start >= 0 {
		terms = splitCompound(text[start:], terms)
	}

	return terms
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// splitCompound breaks a candidate word on underscores and on
// lowercase-to-uppercase transitions, appending each surviving lowercased
// part to terms.
func splitCompound(word string, terms []string) []string {
	start := 0
	for i := 0; i < len(word); i++ {
		if word[i] == '_' {
			terms = emit(word[start:i], terms)
			start = i + 1
			continue
		}
		if i > 0 && isLower(word[i-1]) && isUpper(word[i]) {
			terms = emit(word[start:i], terms)
			start = i
		}
	}
	return emit(word[start:], terms)
}

func emit(part string, terms []string) []string {
	if len(part) < 2 {
		return terms
	}
	part = strings.ToLower(part)
	if IsStopWord(part) {
		return terms
	}
	return append(terms, part)
}

func isLower(c byte) bool { return c >= 'a' && c <= 'z' }

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
