// Package preprocess provides Unicode normalization, sentence segmentation,
// and stopword filtering for Bengali and English text.
package preprocess

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sentence-terminal punctuation: the Bengali danda plus Latin terminators.
var sentenceTerminators = map[rune]bool{
	'।': true,
	'!': true,
	'?': true,
}

// Normalize applies canonical Unicode composition (NFC), collapses internal
// whitespace runs to a single space, and trims the result. Idempotent:
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// SegmentSentences splits text on sentence-terminal punctuation (।, !, ?),
// normalizes each segment, and drops segments that are empty afterwards.
// Pure function; order preserved.
func SegmentSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return sentenceTerminators[r]
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := Normalize(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// StripStopwords removes whitespace-delimited tokens that appear in stopwords.
// No morphological analysis; tokens must match exactly.
func StripStopwords(text string, stopwords map[string]bool) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !stopwords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}
