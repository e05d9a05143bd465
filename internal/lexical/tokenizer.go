package lexical

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// TokenizerName is the registered name of the journal tokenizer.
	TokenizerName = "journal_tokenizer"

	// StopFilterName is the registered name of the journal stop word filter.
	StopFilterName = "journal_stop"

	// AnalyzerName is the name of the analyzer used for every text field.
	AnalyzerName = "journal_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(StopFilterName, stopFilterConstructor)
}

// Token is one word of journal text with its byte offsets.
type Token struct {
	Term  string
	Start int
	End   int
}

// Tokenize splits text into runs of letters and digits. Apostrophes inside a
// word are kept ("don't"), everything else separates words.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1

	flush := func(end int) {
		if start >= 0 {
			term := strings.TrimRight(text[start:end], "'’")
			if term != "" {
				tokens = append(tokens, Token{Term: term, Start: start, End: start + len(term)})
			}
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start < 0 {
				start = i
			}
		case (r == '\'' || r == '’') && start >= 0:
			// kept only if followed by a letter
			next, _ := utf8.DecodeRuneInString(text[i+utf8.RuneLen(r):])
			if !unicode.IsLetter(next) {
				flush(i)
			}
		default:
			flush(i)
		}
	}
	flush(len(text))
	return tokens
}

// DefaultStopWords are common English words that carry no search value.
var DefaultStopWords = []string{
	"a", "about", "after", "all", "also", "am", "an", "and", "any", "are", "as", "at",
	"be", "been", "before", "being", "but", "by", "can", "could", "did", "do", "does",
	"for", "from", "had", "has", "have", "he", "her", "him", "his", "how", "i", "if",
	"in", "into", "is", "it", "its", "me", "my", "no", "not", "of", "on", "or", "our",
	"she", "so", "than", "that", "the", "their", "them", "then", "there", "these",
	"they", "this", "to", "was", "we", "were", "what", "when", "which", "who", "will",
	"with", "would", "you", "your",
}

func buildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

func tokenizerConstructor(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
	return journalTokenizer{}, nil
}

type journalTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (journalTokenizer) Tokenize(input []byte) analysis.TokenStream {
	tokens := Tokenize(string(input))
	stream := make(analysis.TokenStream, 0, len(tokens))
	for i, tok := range tokens {
		typ := analysis.AlphaNumeric
		if isNumeric(tok.Term) {
			typ = analysis.Numeric
		}
		stream = append(stream, &analysis.Token{
			Term:     []byte(tok.Term),
			Start:    tok.Start,
			End:      tok.End,
			Position: i + 1,
			Type:     typ,
		})
	}
	return stream
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func stopFilterConstructor(map[string]interface{}, *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{stopWords: buildStopWordMap(DefaultStopWords)}, nil
}

type stopFilter struct {
	stopWords map[string]struct{}
}

// Filter implements analysis.TokenFilter. Runs after lowercasing.
func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		if _, stop := f.stopWords[string(tok.Term)]; !stop {
			out = append(out, tok)
		}
	}
	return out
}
