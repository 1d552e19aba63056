// Package rag orchestrates retrieval and response composition for bilingual
// questions over the indexed literary corpus.
package rag

import "regexp"

// Supported query languages.
const (
	LanguageBengali = "bn"
	LanguageEnglish = "en"
)

// DetectLanguage returns the dominant script of text by counting Bengali-block
// code points against Latin letters. Ties and zero-signal default to Bengali.
func DetectLanguage(text string) string {
	var bengali, latin int
	for _, r := range text {
		switch {
		case r >= 0x0980 && r <= 0x09FF:
			bengali++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		}
	}
	if latin > bengali {
		return LanguageEnglish
	}
	return LanguageBengali
}

// glossary is the fixed closed set of English domain terms substituted
// word-by-word when rewriting a query toward the Bengali-indexed corpus.
// A best-effort gloss, not a translation: unmatched words pass through.
var glossary = []glossaryEntry{
	newGlossaryEntry("character", "চরিত্র"),
	newGlossaryEntry("story", "গল্প"),
	newGlossaryEntry("plot", "কাহিনী"),
	newGlossaryEntry("author", "লেখক"),
	newGlossaryEntry("meaning", "অর্থ"),
	newGlossaryEntry("question", "প্রশ্ন"),
	newGlossaryEntry("answer", "উত্তর"),
	newGlossaryEntry("Anupam", "অনুপম"),
	newGlossaryEntry("Kalyani", "কল্যাণী"),
	newGlossaryEntry("uncle", "মামা"),
	newGlossaryEntry("marriage", "বিয়ে"),
	newGlossaryEntry("wedding", "বিয়ে"),
	newGlossaryEntry("Rabindranath", "রবীন্দ্রনাথ"),
	newGlossaryEntry("Tagore", "ঠাকুর"),
}

type glossaryEntry struct {
	pattern *regexp.Regexp
	bengali string
}

func newGlossaryEntry(english, bengali string) glossaryEntry {
	return glossaryEntry{
		pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(english) + `\b`),
		bengali: bengali,
	}
}

// RewriteQuery substitutes known domain terms with their Bengali forms using
// case-insensitive whole-word matching.
func RewriteQuery(query string) string {
	for _, entry := range glossary {
		query = entry.pattern.ReplaceAllString(query, entry.bengali)
	}
	return query
}
