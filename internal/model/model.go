package model

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mode selects which spreadsheet is studied.
type Mode string

const (
	// ModePractice is the grammar practice sheet with explicit distractors.
	ModePractice Mode = "practice"
	// ModeVocab is the vocabulary sheet; distractors come from sibling words.
	ModeVocab Mode = "vocab"
)

// ParseMode accepts the mode selector values, including the "vocabulary" alias.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "practice":
		return ModePractice, nil
	case "vocab", "vocabulary":
		return ModeVocab, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// QuestionRecord is a normalized practice-sheet row.
type QuestionRecord struct {
	Prompt        string    `json:"prompt"`
	CorrectAnswer string    `json:"correct_answer"`
	Distractors   [3]string `json:"distractors"`
	Group         float64   `json:"group"`
}

// VocabRecord is a normalized vocabulary-sheet row.
type VocabRecord struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
	Example    string `json:"example"`
	Group      int    `json:"group"`
}

// PresentedQuestion is the renderable unit derived from either record type.
type PresentedQuestion struct {
	Kind        Mode     `json:"kind"`
	DisplayText string   `json:"display_text"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	SpeechText  string   `json:"speech_text"`
	Example     string   `json:"example,omitempty"`
}

// ColumnMap names the header labels read for one mode.
type ColumnMap struct {
	Prompt      string   `mapstructure:"question"`
	Answer      string   `mapstructure:"answer"`
	Distractors []string `mapstructure:"distractors"`
	Word        string   `mapstructure:"word"`
	Definition  string   `mapstructure:"definition"`
	Example     string   `mapstructure:"example"`
	Group       string   `mapstructure:"group"`
}

// Labels returns every non-empty label in the map.
func (c ColumnMap) Labels() []string {
	var out []string
	for _, l := range append([]string{c.Prompt, c.Answer, c.Word, c.Definition, c.Example, c.Group}, c.Distractors...) {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Over returns c with every empty label filled from base. Distractors are
// merged position by position.
func (c ColumnMap) Over(base ColumnMap) ColumnMap {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	out := ColumnMap{
		Prompt:     pick(c.Prompt, base.Prompt),
		Answer:     pick(c.Answer, base.Answer),
		Word:       pick(c.Word, base.Word),
		Definition: pick(c.Definition, base.Definition),
		Example:    pick(c.Example, base.Example),
		Group:      pick(c.Group, base.Group),
	}
	n := max(len(c.Distractors), len(base.Distractors))
	for i := 0; i < n; i++ {
		var v, def string
		if i < len(c.Distractors) {
			v = c.Distractors[i]
		}
		if i < len(base.Distractors) {
			def = base.Distractors[i]
		}
		out.Distractors = append(out.Distractors, pick(v, def))
	}
	return out
}

// DefaultPracticeColumns matches the practice sheet headers.
func DefaultPracticeColumns() ColumnMap {
	return ColumnMap{
		Prompt:      "Question",
		Answer:      "Correct Answer",
		Distractors: []string{"Distractor 1", "Distractor 2", "Distractor 3"},
		Group:       "Group",
	}
}

// DefaultVocabColumns matches the vocabulary sheet headers.
func DefaultVocabColumns() ColumnMap {
	return ColumnMap{
		Word:       "word",
		Definition: "Definition",
		Example:    "example",
		Group:      "group",
	}
}

// QuizConfig holds runtime parameters set via CLI flags and config files.
type QuizConfig struct {
	Sources      map[Mode]string    // spreadsheet export URL per mode
	Columns      map[Mode]ColumnMap // header labels per mode
	Format       string             // csv, xlsx or auto
	CacheTTL     time.Duration      // 0 disables the raw-data cache
	FetchTimeout time.Duration
	SpeechLang   string // BCP 47 tag passed to the speaker
	DefaultMode  Mode
	BasePath     string // URL prefix for sub-path deployments (e.g. "/fi")
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}
