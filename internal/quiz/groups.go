package quiz

import (
	"math"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"github.com/pavelanni/flashquiz/internal/model"
)

// GroupIndex is the selectable partition of a record set.
type GroupIndex struct {
	Groups []float64
}

// BuildGroupIndex sorts and deduplicates groups. With integerOnly, only
// positive integers are selectable. An empty result falls back to group 1.
func BuildGroupIndex(groups []float64, integerOnly bool) GroupIndex {
	eligible := lo.Filter(lo.Uniq(groups), func(g float64, _ int) bool {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return false
		}
		if integerOnly {
			return g > 0 && g == math.Trunc(g)
		}
		return true
	})
	slices.Sort(eligible)
	if len(eligible) == 0 {
		eligible = []float64{1}
	}
	return GroupIndex{Groups: eligible}
}

// PracticeGroups indexes practice records.
func PracticeGroups(records []model.QuestionRecord) GroupIndex {
	return BuildGroupIndex(lo.Map(records, func(r model.QuestionRecord, _ int) float64 {
		return r.Group
	}), false)
}

// VocabGroups indexes vocabulary records.
func VocabGroups(records []model.VocabRecord) GroupIndex {
	return BuildGroupIndex(lo.Map(records, func(r model.VocabRecord, _ int) float64 {
		return float64(r.Group)
	}), true)
}

// Default prefers group 1, else the smallest group.
func (gi GroupIndex) Default() float64 {
	if gi.Contains(1) {
		return 1
	}
	if len(gi.Groups) == 0 {
		return 1
	}
	return gi.Groups[0]
}

// Contains reports exact membership.
func (gi GroupIndex) Contains(g float64) bool {
	return slices.Contains(gi.Groups, g)
}

// FormatGroup renders a group value without a trailing ".0".
func FormatGroup(g float64) string {
	return strconv.FormatFloat(g, 'f', -1, 64)
}

// ParseGroup parses a selector value. Vocabulary groups are integers.
func ParseGroup(mode model.Mode, s string) (float64, error) {
	if mode == model.ModeVocab {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, err
		}
		return float64(n), nil
	}
	return strconv.ParseFloat(s, 64)
}
