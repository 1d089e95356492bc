package quiz

import (
	"math"
	"slices"
	"testing"

	"github.com/pavelanni/flashquiz/internal/model"
)

func TestBuildGroupIndex(t *testing.T) {
	tests := []struct {
		name        string
		groups      []float64
		integerOnly bool
		want        []float64
		wantDefault float64
	}{
		{"empty falls back to 1", nil, false, []float64{1}, 1},
		{"sorted and deduplicated", []float64{3, 1, 2, 3, 1}, false, []float64{1, 2, 3}, 1},
		{"fractional practice tiers", []float64{2.5, 2, 2.5}, false, []float64{2, 2.5}, 2},
		{"vocab without group 1", []float64{5, 3, 5}, true, []float64{3, 5}, 3},
		{"vocab drops non-integers", []float64{1.5, 2}, true, []float64{2}, 2},
		{"vocab drops non-positive", []float64{0, -1}, true, []float64{1}, 1},
		{"non-finite dropped", []float64{math.NaN(), math.Inf(1), 4}, false, []float64{4}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gi := BuildGroupIndex(tt.groups, tt.integerOnly)
			if !slices.Equal(gi.Groups, tt.want) {
				t.Errorf("Groups = %v, want %v", gi.Groups, tt.want)
			}
			if got := gi.Default(); got != tt.wantDefault {
				t.Errorf("Default() = %v, want %v", got, tt.wantDefault)
			}
		})
	}
}

func TestVocabGroupsFromNegativeInput(t *testing.T) {
	res := mustParse(t, "word,Definition,group\ntalo,house,-2\n")
	recs, err := NewNormalizer(nil).NormalizeVocab(res)
	if err != nil {
		t.Fatalf("NormalizeVocab: %v", err)
	}
	if recs[0].Group != 2 {
		t.Fatalf("group = %d, want 2", recs[0].Group)
	}
	gi := VocabGroups(recs)
	if !slices.Equal(gi.Groups, []float64{2}) {
		t.Errorf("Groups = %v, want [2]", gi.Groups)
	}
}

func TestPracticeGroups(t *testing.T) {
	gi := PracticeGroups([]model.QuestionRecord{{Group: 1.5}, {Group: 1}, {Group: 1.5}})
	if !slices.Equal(gi.Groups, []float64{1, 1.5}) {
		t.Errorf("Groups = %v", gi.Groups)
	}
	if !gi.Contains(1.5) || gi.Contains(2) {
		t.Error("Contains should use exact equality")
	}
}

func TestFormatAndParseGroup(t *testing.T) {
	if got := FormatGroup(2); got != "2" {
		t.Errorf("FormatGroup(2) = %q", got)
	}
	if got := FormatGroup(1.5); got != "1.5" {
		t.Errorf("FormatGroup(1.5) = %q", got)
	}

	g, err := ParseGroup(model.ModePractice, "1.5")
	if err != nil || g != 1.5 {
		t.Errorf("ParseGroup(practice, 1.5) = %v, %v", g, err)
	}
	if _, err := ParseGroup(model.ModeVocab, "1.5"); err == nil {
		t.Error("vocab groups must be integers")
	}
}
