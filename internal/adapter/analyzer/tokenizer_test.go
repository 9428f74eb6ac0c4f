package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeWithStemming(t *testing.T) {
	tok := NewTokenizer(true)
	assert.Equal(t, []string{"run", "dog", "plai"}, tok.Tokenize("running dogs are playing"))
	assert.Equal(t, []string{"refund", "refund", "refund"}, tok.Tokenize("Refunds refunded REFUNDING"))
}

func TestTokenizeWithoutStemming(t *testing.T) {
	tok := NewTokenizer(false)
	assert.Equal(t, []string{"running", "dogs", "playing"}, tok.Tokenize("running dogs are playing"))
}

func TestTokenizeDropsStopwordsAndShortWords(t *testing.T) {
	tok := NewTokenizer(false)
	assert.Equal(t, []string{"quick", "brown", "fox"}, tok.Tokenize("Hi, the quick brown fox. Thanks!"))
	assert.Empty(t, tok.Tokenize("a I"))
	assert.Empty(t, tok.Tokenize(""))
}

func TestTerms(t *testing.T) {
	tok := NewTokenizer(true)
	assert.Equal(t, map[string]struct{}{"email": {}, "bounc": {}}, tok.Terms("Email bounced, email bounces"))
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"hello_world", []string{"hello_world"}},
		{"hello-world", []string{"hello", "world"}},
		{"port 587/tcp", []string{"port", "587", "tcp"}},
		{"123numbers456", []string{"123numbers456"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, splitWords(tt.input), tt.input)
	}
}

func TestStem(t *testing.T) {
	s := NewPorterStemmer()
	tests := map[string]string{
		"caresses":    "caress",
		"ponies":      "poni",
		"agreed":      "agre",
		"hopping":     "hop",
		"relational":  "relat",
		"conditional": "condit",
		"electrical":  "electr",
		"adjustment":  "adjust",
		"renewal":     "renew",
		"replacement": "replac",
		"cement":      "cement",
		"controlling": "control",
		"rate":        "rate",
		"probate":     "probat",
		"go":          "go",
		"café":        "café",
	}
	for in, want := range tests {
		assert.Equal(t, want, s.Stem(in), in)
	}
}
