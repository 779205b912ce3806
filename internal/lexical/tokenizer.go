// Package lexical implements tokenization and BM25 keyword scoring over the
// memory corpus. Term statistics are corpus-global, so any document change
// requires a full rebuild of the model; there is no cheaper incremental path
// for lexical scoring.
package lexical

import (
	"regexp"
	"strings"
)

// tokenPattern extracts three token classes from lowercased text:
// single CJK ideographs, runs of Latin letters, and runs of decimal
// digits (any Unicode script, so Arabic-Indic numerals tokenize too).
// Everything else (punctuation, whitespace) is discarded.
//
// This pattern is load-bearing for score stability: index-time and
// query-time tokenization must agree exactly.
var tokenPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]|[a-z]+|\p{Nd}+`)

// Tokenize lowercases text and extracts its token sequence.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// TokenizeAll tokenizes every text, preserving order.
func TokenizeAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = Tokenize(t)
	}
	return out
}
