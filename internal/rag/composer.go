package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/banglatutor/aparichita/internal/models"
)

// Generator produces a natural-language answer from a system and user prompt.
// It is an external, fallible, network-backed service.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Composer turns retrieved chunks and conversation context into prompts and
// answers. Generation failures are absorbed into a language-appropriate
// apologetic message so the caller always receives some textual reply.
type Composer struct {
	generator Generator
	logger    *zap.Logger
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithComposerLogger sets a logger for generation failures.
func WithComposerLogger(l *zap.Logger) ComposerOption {
	return func(c *Composer) { c.logger = l }
}

// NewComposer creates a composer over the given generator.
func NewComposer(generator Generator, opts ...ComposerOption) *Composer {
	c := &Composer{generator: generator}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildContext renders retrieved chunks as a labeled context block, one
// paragraph per chunk, labels chosen by chunk type.
func (c *Composer) BuildContext(chunks []models.QueryResult) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var label string
		switch models.ChunkTypeOf(chunk) {
		case string(models.ChunkStory):
			label = "গল্পের অংশ"
		case string(models.ChunkCharacter):
			label = "চরিত্র তথ্য"
		case string(models.ChunkMCQ):
			label = "প্রশ্ন ও উত্তর"
		case string(models.ChunkWordMeaning):
			label = "শব্দার্থ"
		default:
			label = "তথ্য"
		}
		parts = append(parts, fmt.Sprintf("%s %d: %s", label, i+1, chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}

// SystemPrompt returns the assistant instructions in the query language.
func (c *Composer) SystemPrompt(language string) string {
	if language == LanguageEnglish {
		return `You are a helpful assistant specialized in Bengali literature, specifically Rabindranath Tagore's short story "অপরিচিতা" (Aparichita/The Stranger).

Your role:
- Answer questions about the story, characters, plot, themes, and literary analysis
- Provide accurate information based on the given context
- Respond in English when the user asks in English
- Respond in Bengali when the user asks in Bengali
- Be educational and helpful for students
- Include relevant quotes or examples when appropriate
- If you don't know something from the context, say so clearly

Context will be provided from the story and related educational materials.`
	}
	return `আপনি বাংলা সাহিত্যের একজন সহায়ক সহকারী, বিশেষত রবীন্দ্রনাথ ঠাকুরের "অপরিচিতা" গল্পের বিশেষজ্ঞ।

আপনার ভূমিকা:
- গল্প, চরিত্র, কাহিনী, বিষয়বস্তু এবং সাহিত্য বিশ্লেষণ সম্পর্কে প্রশ্নের উত্তর দিন
- প্রদত্ত প্রসঙ্গের ভিত্তিতে সঠিক তথ্য প্রদান করুন
- ব্যবহারকারী ইংরেজিতে জিজ্ঞাসা করলে ইংরেজিতে উত্তর দিন
- ব্যবহারকারী বাংলায় জিজ্ঞাসা করলে বাংলায় উত্তর দিন
- শিক্ষার্থীদের জন্য শিক্ষামূলক এবং সহায়ক হন
- প্রাসঙ্গিক উদ্ধৃতি বা উদাহরণ অন্তর্ভুক্ত করুন
- প্রসঙ্গ থেকে কিছু না জানলে স্পষ্টভাবে বলুন

গল্প এবং সংশ্লিষ্ট শিক্ষামূলক উপকরণ থেকে প্রসঙ্গ প্রদান করা হবে।`
}

// Respond generates an answer for query given the document context and
// optional prior conversation context. A generation failure yields an apology
// in the query language instead of an error.
func (c *Composer) Respond(ctx context.Context, query, docContext, convContext string) string {
	language := DetectLanguage(query)
	var userPrompt string
	if convContext != "" {
		userPrompt = fmt.Sprintf(`Previous conversation context:
%s

Current question: %s

Relevant information from documents:
%s

Please provide a comprehensive answer based on the given context.`, convContext, query, docContext)
	} else {
		userPrompt = fmt.Sprintf(`Question: %s

Relevant information from documents:
%s

Please provide a comprehensive answer based on the given context.`, query, docContext)
	}
	answer, err := c.generator.Generate(ctx, c.SystemPrompt(language), userPrompt)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("response generation failed", zap.Error(err))
		}
		return apology(language)
	}
	return answer
}

// apology is the reply of last resort when generation fails.
func apology(language string) string {
	if language == LanguageEnglish {
		return "I apologize, but I encountered an error while generating the response. Please try again."
	}
	return "দুঃখিত, উত্তর তৈরি করতে একটি ত্রুটি হয়েছে। অনুগ্রহ করে আবার চেষ্টা করুন।"
}

// notFound states that the requested information is not in the corpus. Used
// instead of generation when a lookup retrieves nothing, so the system never
// fabricates an answer.
func notFound(language string) string {
	if language == LanguageEnglish {
		return "Sorry, I could not find that information in the available materials."
	}
	return "দুঃখিত, উপলব্ধ উপকরণে এই তথ্য পাওয়া যায়নি।"
}
