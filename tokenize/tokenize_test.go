package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"CamelAndSnake", "fooBar_baz", []string{"foo", "bar", "baz"}},
		{"Snake", "parse_json", []string{"parse", "json"}},
		{"Camel", "toUpperCase", []string{"upper", "case"}},
		{"Delimiters", "core::str, split!", []string{"core", "str", "split"}},
		{"Empty", "", nil},
		{"OnlyDelimiters", ":: -- !!", nil},
		{"ShortPartsDropped", "a_b_cd", []string{"cd"}},
		{"Digits", "fnv1a64 sha256", []string{"fnv1a64", "sha256"}},
		{"StopWordsDropped", "the quick and the dead", []string{"quick", "dead"}},
		{"KeywordsDropped", "func parse return value", []string{"parse", "value"}},
		{"MixedCase", "HashMap", []string{"hash", "map"}},
		{"AllCapsRun", "JSONValue", []string{"jsonvalue"}},
		{"TrailingUnderscore", "name_", []string{"name"}},
		{"LeadingUnderscore", "_private", []string{"private"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.text))
		})
	}
}

func TestTokenizeNoStopWordsOrShortTerms(t *testing.T) {
	terms := Tokenize("the isA of a fooBar_baz x1 can_do Might")
	for _, term := range terms {
		assert.GreaterOrEqual(t, len(term), 2, "term %q too short", term)
		assert.False(t, IsStopWord(term), "term %q is a stop word", term)
	}
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("the"))
	assert.True(t, IsStopWord("func"))
	assert.True(t, IsStopWord("self"))
	assert.False(t, IsStopWord("parse"))
	assert.False(t, IsStopWord(""))
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "splitCamelCase and snake_case_words mixed with CONSTANTS"
	first := Tokenize(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Tokenize(text))
	}
}
