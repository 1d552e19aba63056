package corpus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banglatutor/aparichita/internal/models"
	"github.com/banglatutor/aparichita/internal/preprocess"
)

// Structure maps a source document to a flat, ordered chunk sequence. Category
// order is fixed (story, mcq, creative, word_meaning, character) and within a
// category source order is kept; map-shaped categories iterate in sorted key
// order so repeated runs on identical input produce identical ids. Units whose
// text is empty after normalization are dropped, never indexed.
func Structure(doc *Document) []models.Chunk {
	var chunks []models.Chunk
	next := func() int { return len(chunks) }

	for _, s := range doc.OrganizedSections.StoryText {
		if c, ok := storyChunk(s, next()); ok {
			chunks = append(chunks, c)
		}
	}
	for _, category := range sortedKeys(doc.OrganizedSections.MCQQuestions) {
		for _, q := range doc.OrganizedSections.MCQQuestions[category] {
			if c, ok := mcqChunk(category, q, next()); ok {
				chunks = append(chunks, c)
			}
		}
	}
	for _, cq := range doc.OrganizedSections.CreativeQuestions {
		if c, ok := creativeChunk(cq, next()); ok {
			chunks = append(chunks, c)
		}
	}
	for _, section := range sortedKeys(doc.OrganizedSections.WordMeanings) {
		meanings := doc.OrganizedSections.WordMeanings[section]
		for _, word := range sortedKeys(meanings) {
			if c, ok := wordChunk(section, word, meanings[word], next()); ok {
				chunks = append(chunks, c)
			}
		}
	}
	for _, category := range sortedKeys(doc.OrganizedSections.Characters) {
		profiles := doc.OrganizedSections.Characters[category]
		for _, name := range sortedKeys(profiles) {
			if c, ok := characterChunk(category, name, profiles[name], next()); ok {
				chunks = append(chunks, c)
			}
		}
	}
	return chunks
}

func chunkID(t models.ChunkType, ordinal int) string {
	return fmt.Sprintf("%s_%d", t, ordinal)
}

func baseMetadata(t models.ChunkType, id string) map[string]any {
	return map[string]any{"type": string(t), "doc_id": id}
}

func storyChunk(s StorySection, ordinal int) (models.Chunk, bool) {
	content := preprocess.Normalize(s.Content)
	if content == "" {
		return models.Chunk{}, false
	}
	id := chunkID(models.ChunkStory, ordinal)
	meta := baseMetadata(models.ChunkStory, id)
	meta["section"] = s.Section
	meta["title"] = preprocess.Normalize(s.Title)
	meta["content_type"] = "narrative"
	return models.Chunk{ID: id, Type: models.ChunkStory, Content: content, Metadata: meta}, true
}

func mcqChunk(category string, q MCQQuestion, ordinal int) (models.Chunk, bool) {
	question := preprocess.Normalize(q.Question)
	if question == "" {
		return models.Chunk{}, false
	}
	explanation := preprocess.Normalize(q.Explanation)
	id := chunkID(models.ChunkMCQ, ordinal)
	meta := baseMetadata(models.ChunkMCQ, id)
	meta["category"] = category
	meta["question_number"] = q.QuestionNumber
	meta["question"] = question
	meta["answer"] = preprocess.Normalize(q.CorrectAnswer)
	meta["content_type"] = "question_answer"
	if q.Source != "" {
		meta["source"] = q.Source
	}
	content := fmt.Sprintf("প্রশ্ন: %s উত্তর: %s", question, explanation)
	return models.Chunk{ID: id, Type: models.ChunkMCQ, Content: preprocess.Normalize(content), Metadata: meta}, true
}

func creativeChunk(cq CreativeQuestion, ordinal int) (models.Chunk, bool) {
	context := preprocess.Normalize(cq.Context)
	answers := make([]string, 0, len(cq.Answers))
	for _, key := range sortedKeys(cq.Answers) {
		if a := preprocess.Normalize(cq.Answers[key]); a != "" {
			answers = append(answers, a)
		}
	}
	if context == "" && len(answers) == 0 {
		return models.Chunk{}, false
	}
	id := chunkID(models.ChunkCreative, ordinal)
	meta := baseMetadata(models.ChunkCreative, id)
	meta["question_number"] = cq.QuestionNumber
	meta["content_type"] = "creative_question"
	content := fmt.Sprintf("প্রসঙ্গ: %s প্রশ্ন ও উত্তর: %s", context, strings.Join(answers, " "))
	return models.Chunk{ID: id, Type: models.ChunkCreative, Content: preprocess.Normalize(content), Metadata: meta}, true
}

func wordChunk(section, word, meaning string, ordinal int) (models.Chunk, bool) {
	word = preprocess.Normalize(word)
	meaning = preprocess.Normalize(meaning)
	if word == "" {
		return models.Chunk{}, false
	}
	id := chunkID(models.ChunkWordMeaning, ordinal)
	meta := baseMetadata(models.ChunkWordMeaning, id)
	meta["section"] = section
	meta["word"] = word
	meta["meaning"] = meaning
	meta["content_type"] = "vocabulary"
	content := fmt.Sprintf("শব্দ: %s অর্থ: %s", word, meaning)
	return models.Chunk{ID: id, Type: models.ChunkWordMeaning, Content: content, Metadata: meta}, true
}

func characterChunk(category, name string, info map[string]any, ordinal int) (models.Chunk, bool) {
	name = preprocess.Normalize(name)
	if name == "" {
		return models.Chunk{}, false
	}
	parts := []string{fmt.Sprintf("চরিত্র: %s", name)}
	for _, key := range sortedKeys(info) {
		value := info[key]
		var rendered string
		if s, ok := value.(string); ok {
			rendered = preprocess.Normalize(s)
		} else {
			rendered = preprocess.Normalize(fmt.Sprint(value))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", key, rendered))
	}
	id := chunkID(models.ChunkCharacter, ordinal)
	meta := baseMetadata(models.ChunkCharacter, id)
	meta["category"] = category
	meta["character_name"] = name
	meta["content_type"] = "character_description"
	return models.Chunk{ID: id, Type: models.ChunkCharacter, Content: strings.Join(parts, " "), Metadata: meta}, true
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
