// Package corpus loads the source document and structures it into
// typed, searchable chunks.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the heterogeneous source document. Every key under
// organized_sections is optional; an absent key contributes zero chunks.
type Document struct {
	OrganizedSections Sections `json:"organized_sections"`
}

// Sections holds the five content categories of the source document.
type Sections struct {
	StoryText         []StorySection                       `json:"story_text"`
	MCQQuestions      map[string][]MCQQuestion             `json:"mcq_questions"`
	CreativeQuestions []CreativeQuestion                   `json:"creative_questions"`
	WordMeanings      map[string]map[string]string         `json:"word_meanings"`
	Characters        map[string]map[string]map[string]any `json:"characters_detailed"`
}

// StorySection is one titled section of the story text.
type StorySection struct {
	Section int    `json:"section"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// MCQQuestion is one multiple-choice question. Explanation and Source are optional.
type MCQQuestion struct {
	QuestionNumber int               `json:"question_number"`
	Question       string            `json:"question"`
	Options        map[string]string `json:"options"`
	CorrectAnswer  string            `json:"correct_answer"`
	Explanation    string            `json:"explanation,omitempty"`
	Source         string            `json:"source,omitempty"`
}

// CreativeQuestion is one context-based creative question set. Answers are optional.
type CreativeQuestion struct {
	QuestionNumber int               `json:"question_number"`
	Context        string            `json:"context"`
	Questions      map[string]string `json:"questions"`
	Answers        map[string]string `json:"answers,omitempty"`
}

// LoadDocument reads and parses the source document at path. A missing file or
// malformed JSON indicates a corpus authoring problem and is returned verbatim.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse corpus file: %w", err)
	}
	return &doc, nil
}
