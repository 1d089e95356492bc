package quiz

import (
	"errors"
	"math"
	"testing"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/table"
)

func mustParse(t *testing.T, csv string) table.Result {
	t.Helper()
	res, err := table.Parse([]byte(csv), table.Options{Header: true, SkipEmptyLines: true})
	if err != nil {
		t.Fatalf("table.Parse: %v", err)
	}
	return res
}

func TestNormalizePractice(t *testing.T) {
	res := mustParse(t, "Question,Correct Answer,Distractor 1,Distractor 2,Distractor 3,Group\n"+
		"  Mikä on talo?  , house ,dog, cat ,,2\n"+
		"Incomplete,,,,,abc\n"+
		",,,,,1.5\n"+
		"Zero group,x,,,,0\n")

	recs, err := NewNormalizer(nil).NormalizePractice(res)
	if err != nil {
		t.Fatalf("NormalizePractice: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("practice rows must never be dropped: got %d records", len(recs))
	}

	first := recs[0]
	if first.Prompt != "Mikä on talo?" || first.CorrectAnswer != "house" {
		t.Errorf("fields not trimmed: %+v", first)
	}
	if first.Distractors != [3]string{"dog", "cat", ""} {
		t.Errorf("distractors = %q", first.Distractors)
	}
	if first.Group != 2 {
		t.Errorf("group = %v, want 2", first.Group)
	}

	if recs[1].Group != 1 {
		t.Errorf("unparsable group = %v, want 1", recs[1].Group)
	}
	if recs[2].Group != 1.5 {
		t.Errorf("fractional group = %v, want 1.5", recs[2].Group)
	}
	if recs[3].Group != 1 {
		t.Errorf("zero group = %v, want 1", recs[3].Group)
	}
}

func TestNormalizePracticeMissingColumns(t *testing.T) {
	res := mustParse(t, "Question,Group\nOnly a prompt,3\n")
	recs, err := NewNormalizer(nil).NormalizePractice(res)
	if err != nil {
		t.Fatalf("NormalizePractice: %v", err)
	}
	r := recs[0]
	if r.CorrectAnswer != "" || r.Distractors != [3]string{} {
		t.Errorf("missing columns should normalize to empty strings: %+v", r)
	}
}

func TestNormalizePartialColumnOverride(t *testing.T) {
	res := mustParse(t, "Kysymys,Correct Answer,Distractor 1,Distractor 2,Distractor 3,Group\n"+
		"Q (olla),on,olen,olet,ovat,2\n")
	n := NewNormalizer(map[model.Mode]model.ColumnMap{
		model.ModePractice: {Prompt: "Kysymys"},
	})
	recs, err := n.NormalizePractice(res)
	if err != nil {
		t.Fatalf("NormalizePractice: %v", err)
	}
	want := model.QuestionRecord{
		Prompt:        "Q (olla)",
		CorrectAnswer: "on",
		Distractors:   [3]string{"olen", "olet", "ovat"},
		Group:         2,
	}
	if recs[0] != want {
		t.Errorf("record = %+v, want %+v", recs[0], want)
	}
	if got := n.Columns[model.ModeVocab]; got.Word != "word" {
		t.Errorf("vocab columns should keep defaults, got %+v", got)
	}
}

func TestNormalizeVocab(t *testing.T) {
	res := mustParse(t, "word,Definition,example,group\n"+
		"talo,house,Talo on iso.,-2\n"+
		"  ,nothing,,1\n"+
		"koira, dog ,,0\n"+
		"kissa,cat,,2.7\n"+
		"auto,car,,x\n")

	recs, err := NewNormalizer(nil).NormalizeVocab(res)
	if err != nil {
		t.Fatalf("NormalizeVocab: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("expected rows without word to be dropped, got %d records", len(recs))
	}

	want := []model.VocabRecord{
		{Word: "talo", Definition: "house", Example: "Talo on iso.", Group: 2},
		{Word: "koira", Definition: "dog", Group: 1},
		{Word: "kissa", Definition: "cat", Group: 2},
		{Word: "auto", Definition: "car", Group: 1},
	}
	for i, w := range want {
		if recs[i] != w {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], w)
		}
	}
}

func TestNormalizeCustomColumns(t *testing.T) {
	n := NewNormalizer(map[model.Mode]model.ColumnMap{
		model.ModeVocab: {Word: "sana", Definition: "merkitys", Group: "ryhmä"},
	})
	res := mustParse(t, "sana,merkitys,ryhmä\ntalo,house,3\n")
	recs, err := n.NormalizeVocab(res)
	if err != nil {
		t.Fatalf("NormalizeVocab: %v", err)
	}
	if len(recs) != 1 || recs[0].Word != "talo" || recs[0].Group != 3 {
		t.Errorf("unexpected records %+v", recs)
	}
}

func TestNormalizeRejectsForeignHeader(t *testing.T) {
	res := mustParse(t, "<!DOCTYPE html>\n<html><body>Sign in</body></html>\n")
	_, err := NewNormalizer(nil).NormalizePractice(res)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Mode != model.ModePractice {
		t.Errorf("mode = %q", pe.Mode)
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	res := mustParse(t, "")
	recs, err := NewNormalizer(nil).NormalizeVocab(res)
	if err != nil {
		t.Fatalf("NormalizeVocab: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no records, got %d", len(recs))
	}
}

func TestGroupCoercion(t *testing.T) {
	tests := []struct {
		in       string
		practice float64
		vocab    int
	}{
		{"1", 1, 1},
		{" 4 ", 4, 4},
		{"3 (hard)", 3, 3},
		{"-2", -2, 2},
		{"2.5", 2.5, 2},
		{"0.4", 0.4, 1},
		{"0", 1, 1},
		{"", 1, 1},
		{"abc", 1, 1},
		{"1e400", 1, 1},
	}
	for _, tt := range tests {
		if got := practiceGroup(tt.in); got != tt.practice {
			t.Errorf("practiceGroup(%q) = %v, want %v", tt.in, got, tt.practice)
		}
		if got := vocabGroup(tt.in); got != tt.vocab {
			t.Errorf("vocabGroup(%q) = %v, want %v", tt.in, got, tt.vocab)
		}
	}
}

func TestNormalizedGroupsAreFinite(t *testing.T) {
	res := mustParse(t, "Question,Group\na,NaN\nb,Infinity\nc,-0\n")
	recs, err := NewNormalizer(nil).NormalizePractice(res)
	if err != nil {
		t.Fatalf("NormalizePractice: %v", err)
	}
	for _, r := range recs {
		if math.IsNaN(r.Group) || math.IsInf(r.Group, 0) {
			t.Errorf("record %q has non-finite group %v", r.Prompt, r.Group)
		}
	}
}
