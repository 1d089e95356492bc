package quiz

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/samber/lo"

	"github.com/pavelanni/flashquiz/internal/model"
)

const maxDistractors = 3

// VerbIndex maps a lexical key to [answer, distractors...] collected from
// rows that carry an answer. Linked rows resolve their options through it.
type VerbIndex map[string][]string

// Warning describes a question that was dropped or rendered with fewer options.
type Warning struct {
	Prompt string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Prompt, w.Reason)
}

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Materializer derives presented questions for one group.
type Materializer struct {
	Shuffle ShuffleFunc
}

// NewMaterializer returns a Materializer using the global random source.
func NewMaterializer() *Materializer {
	return &Materializer{Shuffle: rand.Shuffle}
}

func (m *Materializer) shuffled(items []string) []string {
	out := slices.Clone(items)
	m.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// BuildVerbIndex collects option sets keyed by lexical key over the whole
// record set. The first row per key wins.
func BuildVerbIndex(records []model.QuestionRecord) VerbIndex {
	idx := make(VerbIndex)
	for _, r := range records {
		if r.CorrectAnswer == "" {
			continue
		}
		key := ExtractLexicalKey(r.Prompt)
		if key == "" {
			continue
		}
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = optionSet(r.CorrectAnswer, r.Distractors[:])
	}
	return idx
}

// optionSet returns answer followed by the distinct non-empty distractors
// that differ from it.
func optionSet(answer string, distractors []string) []string {
	out := []string{answer}
	seen := map[string]bool{answer: true}
	for _, d := range distractors {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// MaterializePractice builds the shuffled question set for group.
func (m *Materializer) MaterializePractice(records []model.QuestionRecord, group float64, idx VerbIndex) ([]model.PresentedQuestion, []Warning) {
	var (
		questions []model.PresentedQuestion
		warnings  []Warning
	)
	for _, r := range records {
		if r.Group != group {
			continue
		}
		key := ExtractLexicalKey(r.Prompt)

		var set []string
		if r.CorrectAnswer != "" {
			set = optionSet(r.CorrectAnswer, r.Distractors[:])
		} else if entry, ok := idx[key]; ok && key != "" {
			set = entry
		} else {
			warnings = append(warnings, Warning{Prompt: r.Prompt, Reason: "no answer and no linked row"})
			continue
		}
		if len(set)-1 < maxDistractors {
			warnings = append(warnings, Warning{
				Prompt: r.Prompt,
				Reason: fmt.Sprintf("only %d distinct distractors", len(set)-1),
			})
		}

		questions = append(questions, model.PresentedQuestion{
			Kind:        model.ModePractice,
			DisplayText: r.Prompt,
			Options:     m.shuffled(set),
			Answer:      set[0],
			SpeechText:  key,
		})
	}
	m.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	return questions, warnings
}

// MaterializeVocab builds the shuffled question set for group, drawing up to
// three definitions of sibling words as distractors.
func (m *Materializer) MaterializeVocab(records []model.VocabRecord, group float64) ([]model.PresentedQuestion, []Warning) {
	inGroup := lo.Filter(records, func(r model.VocabRecord, _ int) bool {
		return float64(r.Group) == group
	})

	var (
		questions []model.PresentedQuestion
		warnings  []Warning
	)
	for _, r := range inGroup {
		pool := lo.Filter(inGroup, func(o model.VocabRecord, _ int) bool {
			return o.Word != r.Word
		})
		m.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

		set := []string{r.Definition}
		seen := map[string]bool{r.Definition: true}
		for _, o := range pool {
			if len(set)-1 == maxDistractors {
				break
			}
			if o.Definition == "" || seen[o.Definition] {
				continue
			}
			seen[o.Definition] = true
			set = append(set, o.Definition)
		}
		if len(set)-1 < maxDistractors {
			warnings = append(warnings, Warning{
				Prompt: r.Word,
				Reason: fmt.Sprintf("only %d distinct distractors", len(set)-1),
			})
		}

		questions = append(questions, model.PresentedQuestion{
			Kind:        model.ModeVocab,
			DisplayText: r.Word,
			Options:     m.shuffled(set),
			Answer:      r.Definition,
			SpeechText:  r.Word,
			Example:     r.Example,
		})
	}
	m.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	return questions, warnings
}
