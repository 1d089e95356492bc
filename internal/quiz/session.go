package quiz

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/speech"
	"github.com/pavelanni/flashquiz/internal/table"
)

// ErrSuperseded is returned by a Load whose result was discarded because a
// newer Load started before it finished.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Loader fetches the raw sheet for a mode.
type Loader interface {
	Fetch(ctx context.Context, mode model.Mode) ([]byte, error)
}

// Feedback is the outcome of checking one answer.
type Feedback struct {
	Selected string           `json:"selected"`
	Correct  bool             `json:"correct"`
	Answer   string           `json:"answer"`
	Speech   speech.Utterance `json:"speech"`
}

// View is an immutable snapshot of the session for renderers.
type View struct {
	Mode     model.Mode
	Groups   []float64
	Selected float64
	Question *model.PresentedQuestion
	Position int // 1-based index of Question
	Total    int
	Complete bool
	Loading  bool
	Feedback *Feedback
	Err      error
	Warnings []Warning
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Columns    map[model.Mode]model.ColumnMap
	Format     table.Format
	SpeechLang string
	Speaker    speech.Speaker
	Shuffle    ShuffleFunc
}

// Session owns the quiz state: loaded records, group selection and the
// cursor into the materialized question set. All methods are safe for
// concurrent use; mutations are serialized.
type Session struct {
	loader     Loader
	normalizer *Normalizer
	mat        *Materializer
	speaker    speech.Speaker
	format     table.Format
	lang       string

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	loading  bool
	loaded   bool
	mode     model.Mode
	pending  model.Mode // mode of the in-flight load
	practice []model.QuestionRecord
	vocab    []model.VocabRecord
	verbs    VerbIndex
	groups   GroupIndex
	selected float64

	questions []model.PresentedQuestion
	warnings  []Warning
	index     int
	complete  bool
	feedback  *Feedback
	err       error
}

// NewSession creates a Session reading sheets through loader.
func NewSession(loader Loader, opts SessionOptions) *Session {
	mat := NewMaterializer()
	if opts.Shuffle != nil {
		mat.Shuffle = opts.Shuffle
	}
	lang := opts.SpeechLang
	if lang == "" {
		lang = speech.DefaultLang
	}
	return &Session{
		loader:     loader,
		normalizer: NewNormalizer(opts.Columns),
		mat:        mat,
		speaker:    opts.Speaker,
		format:     opts.Format,
		lang:       lang,
		mode:       model.ModePractice,
	}
}

// Load fetches and normalizes the sheet for mode, rebuilds the group index
// and materializes the default group. A Load started while another is in
// flight cancels the earlier one. Until the result is applied the session
// keeps serving the previous mode and its data.
func (s *Session) Load(ctx context.Context, mode model.Mode) error {
	if mode != model.ModePractice && mode != model.ModeVocab {
		return ErrUnknownMode
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.pending = mode
	s.loading = true
	s.mu.Unlock()
	defer cancel()

	practice, vocab, err := s.ingest(ctx, mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		slog.Debug("discarding superseded load", "mode", mode)
		return ErrSuperseded
	}
	s.cancel = nil
	s.loading = false
	s.mode = mode

	if err != nil {
		slog.Error("data load failed", "mode", mode, "error", err)
		s.failLocked(err)
		return err
	}

	s.err = nil
	s.loaded = true
	s.practice, s.vocab, s.verbs = nil, nil, nil
	switch mode {
	case model.ModeVocab:
		s.vocab = vocab
		s.groups = VocabGroups(vocab)
	default:
		s.practice = practice
		s.verbs = BuildVerbIndex(practice)
		s.groups = PracticeGroups(practice)
	}
	s.selected = s.groups.Default()
	slog.Info("data loaded", "mode", mode,
		"records", len(practice)+len(vocab),
		"groups", len(s.groups.Groups),
		"selected", s.selected)
	s.materializeLocked()
	return nil
}

// Reload re-runs Load for the current mode, or for the mode being loaded.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	mode := s.mode
	if s.loading {
		mode = s.pending
	}
	s.mu.Unlock()
	return s.Load(ctx, mode)
}

func (s *Session) ingest(ctx context.Context, mode model.Mode) ([]model.QuestionRecord, []model.VocabRecord, error) {
	body, err := s.loader.Fetch(ctx, mode)
	if err != nil {
		return nil, nil, err
	}
	res, err := table.Parse(body, table.Options{Header: true, SkipEmptyLines: true, Format: s.format})
	if err != nil {
		return nil, nil, &ParseError{Mode: mode, Err: err}
	}
	if mode == model.ModeVocab {
		vocab, err := s.normalizer.NormalizeVocab(res)
		return nil, vocab, err
	}
	practice, err := s.normalizer.NormalizePractice(res)
	return practice, nil, err
}

func (s *Session) failLocked(err error) {
	s.err = err
	s.loaded = false
	s.practice, s.vocab, s.verbs = nil, nil, nil
	s.groups = GroupIndex{}
	s.questions, s.warnings = nil, nil
	s.index = 0
	s.complete = false
	s.feedback = nil
}

// SelectGroup re-materializes the question set for g.
func (s *Session) SelectGroup(g float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	if !s.groups.Contains(g) {
		return ErrUnknownGroup
	}
	s.selected = g
	s.materializeLocked()
	return nil
}

func (s *Session) materializeLocked() {
	var qs []model.PresentedQuestion
	var ws []Warning
	switch s.mode {
	case model.ModeVocab:
		qs, ws = s.mat.MaterializeVocab(s.vocab, s.selected)
	default:
		qs, ws = s.mat.MaterializePractice(s.practice, s.selected, s.verbs)
	}
	for _, w := range ws {
		slog.Warn("question data", "group", FormatGroup(s.selected), "item", w.Prompt, "issue", w.Reason)
	}
	s.questions = qs
	s.warnings = ws
	s.index = 0
	s.feedback = nil
	s.complete = len(qs) == 0
	if s.complete {
		slog.Info("group has no questions", "mode", s.mode, "group", FormatGroup(s.selected))
	}
}

// Next advances to the following question. Past the end the set is
// complete and further calls do nothing until the next materialization.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete || !s.loaded {
		return
	}
	s.index++
	s.feedback = nil
	if s.index >= len(s.questions) {
		s.complete = true
	}
}

// Answer checks option against the current question by exact string
// equality and speaks the question's speech text.
func (s *Session) Answer(ctx context.Context, option string) (Feedback, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return Feedback{}, ErrNotLoaded
	}
	if s.complete || s.index >= len(s.questions) {
		s.mu.Unlock()
		return Feedback{}, ErrNoData
	}
	q := s.questions[s.index]
	fb := Feedback{
		Selected: option,
		Correct:  option == q.Answer,
		Answer:   q.Answer,
		Speech:   speech.Utterance{Text: q.SpeechText, Lang: s.lang},
	}
	s.feedback = &fb
	s.mu.Unlock()

	if s.speaker != nil {
		s.speaker.Speak(ctx, fb.Speech)
	}
	return fb, nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Mode:     s.mode,
		Groups:   slices.Clone(s.groups.Groups),
		Selected: s.selected,
		Total:    len(s.questions),
		Complete: s.complete,
		Loading:  s.loading,
		Err:      s.err,
		Warnings: slices.Clone(s.warnings),
	}
	if s.feedback != nil {
		fb := *s.feedback
		v.Feedback = &fb
	}
	if s.loaded && !s.complete && s.index < len(s.questions) {
		q := s.questions[s.index]
		q.Options = slices.Clone(q.Options)
		v.Question = &q
		v.Position = s.index + 1
	}
	return v
}

// Questions returns a copy of the materialized set for the selected group.
func (s *Session) Questions() []model.PresentedQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.questions)
}
