// Package quiz normalizes sheet rows into question records, indexes their
// groups and materializes shuffled multiple-choice question sets.
package quiz

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/table"
)

var errNoKnownColumns = errors.New("header has none of the expected columns")

// Normalizer maps raw rows to records using per-mode column labels.
type Normalizer struct {
	Columns map[model.Mode]model.ColumnMap
}

// NewNormalizer returns a Normalizer with the given mappings layered over the defaults.
func NewNormalizer(columns map[model.Mode]model.ColumnMap) *Normalizer {
	n := &Normalizer{Columns: map[model.Mode]model.ColumnMap{
		model.ModePractice: model.DefaultPracticeColumns(),
		model.ModeVocab:    model.DefaultVocabColumns(),
	}}
	for mode, cm := range columns {
		n.Columns[mode] = cm.Over(n.Columns[mode])
	}
	return n
}

// NormalizePractice converts practice rows. Rows are never dropped here; an
// empty answer marks a linked row resolved later through the verb index.
func (n *Normalizer) NormalizePractice(res table.Result) ([]model.QuestionRecord, error) {
	cols := n.Columns[model.ModePractice]
	if err := checkHeader(res, cols); err != nil {
		return nil, &ParseError{Mode: model.ModePractice, Err: err}
	}

	records := make([]model.QuestionRecord, 0, len(res.Rows))
	for i, row := range res.Rows {
		rec := model.QuestionRecord{
			Prompt:        cell(row, cols.Prompt),
			CorrectAnswer: cell(row, cols.Answer),
			Group:         practiceGroup(cell(row, cols.Group)),
		}
		for j := 0; j < len(rec.Distractors) && j < len(cols.Distractors); j++ {
			rec.Distractors[j] = cell(row, cols.Distractors[j])
		}
		if rec.Prompt == "" {
			slog.Debug("practice row without prompt", "row", i+1)
		}
		records = append(records, rec)
	}
	return records, nil
}

// NormalizeVocab converts vocabulary rows, dropping rows without a word.
func (n *Normalizer) NormalizeVocab(res table.Result) ([]model.VocabRecord, error) {
	cols := n.Columns[model.ModeVocab]
	if err := checkHeader(res, cols); err != nil {
		return nil, &ParseError{Mode: model.ModeVocab, Err: err}
	}

	records := make([]model.VocabRecord, 0, len(res.Rows))
	for i, row := range res.Rows {
		word := cell(row, cols.Word)
		if word == "" {
			slog.Debug("skipping vocab row without word", "row", i+1)
			continue
		}
		records = append(records, model.VocabRecord{
			Word:       word,
			Definition: cell(row, cols.Definition),
			Example:    cell(row, cols.Example),
			Group:      vocabGroup(cell(row, cols.Group)),
		})
	}
	return records, nil
}

// checkHeader rejects a non-empty table whose header shares no label with
// the mapping, which is what an HTML error page parsed as CSV looks like.
func checkHeader(res table.Result, cols model.ColumnMap) error {
	if len(res.Rows) == 0 {
		return nil
	}
	if len(lo.Intersect(res.Fields, cols.Labels())) == 0 {
		return fmt.Errorf("%w (want any of %q, got %q)", errNoKnownColumns, cols.Labels(), res.Fields)
	}
	return nil
}

func cell(row table.Row, label string) string {
	if label == "" {
		return ""
	}
	v, _ := row.Get(label)
	return strings.TrimSpace(v)
}

var leadingNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// parseLeadingNumber reads the numeric prefix of s, so "3 (hard)" yields 3.
func parseLeadingNumber(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// practiceGroup keeps fractional tiers. Zero and unparsable values become 1.
func practiceGroup(s string) float64 {
	f, ok := parseLeadingNumber(s)
	if !ok || f == 0 {
		return 1
	}
	return f
}

// vocabGroup yields a positive integer: absolute value, truncated, at least 1.
func vocabGroup(s string) int {
	f, ok := parseLeadingNumber(s)
	if !ok {
		return 1
	}
	g := math.Trunc(math.Abs(f))
	if g < 1 || g > math.MaxInt32 {
		return 1
	}
	return int(g)
}
