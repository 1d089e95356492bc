// Package views renders the quiz pages as templ components.
package views

//go:generate templ generate

import (
	"context"

	appI18n "github.com/pavelanni/flashquiz/internal/i18n"
	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/speech"
)

// GroupOption is one entry of the group selector.
type GroupOption struct {
	Value    string
	Selected bool
}

// Option is one answer button.
type Option struct {
	Text  string
	State string // "correct", "wrong" or empty
}

// Feedback is the result shown under the options after an answer.
type Feedback struct {
	Correct bool
	Answer  string
}

// QuizData is everything the quiz page needs.
type QuizData struct {
	UILang   string
	Mode     string
	Groups   []GroupOption
	Question *model.PresentedQuestion
	Options  []Option
	Position int
	Total    int
	Complete bool
	Loading  bool
	Feedback *Feedback
	ErrorKey string // i18n message ID of the error banner
	Speech   *speech.Utterance
}

func t(ctx context.Context, id string) string {
	return appI18n.T(ctx, id)
}

func path(ctx context.Context, p string) string {
	return model.BasePathFromContext(ctx) + p
}

func groupLabel(ctx context.Context, n string) string {
	return appI18n.Td(ctx, "GroupN", map[string]any{"N": n})
}

func progress(ctx context.Context, pos, total int) string {
	return appI18n.Td(ctx, "Progress", map[string]any{"Position": pos, "Total": total})
}

func questionCount(ctx context.Context, total int) string {
	return appI18n.Tp(ctx, "QuestionsInGroup", total)
}

func completeMessage(ctx context.Context, mode string) string {
	if mode == string(model.ModeVocab) {
		return t(ctx, "VocabComplete")
	}
	return t(ctx, "PracticeComplete")
}

func prompt(ctx context.Context, data QuizData) string {
	if data.Question.Kind == model.ModeVocab {
		return appI18n.Td(ctx, "WordLabel", map[string]any{"Word": data.Question.DisplayText})
	}
	return data.Question.DisplayText
}

func feedbackText(ctx context.Context, fb Feedback) string {
	if fb.Correct {
		return t(ctx, "Correct")
	}
	return appI18n.Td(ctx, "Incorrect", map[string]any{"Answer": fb.Answer})
}

func exampleText(ctx context.Context, e string) string {
	return appI18n.Td(ctx, "Example", map[string]any{"Example": e})
}
