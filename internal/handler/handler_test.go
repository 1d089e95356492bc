package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/flashquiz/internal/i18n"
	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/quiz"
	"github.com/pavelanni/flashquiz/internal/speech"
)

func TestMain(m *testing.M) {
	if err := appI18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubLoader struct {
	bodies map[model.Mode]string
	errs   map[model.Mode]error
}

func (s *stubLoader) Fetch(_ context.Context, mode model.Mode) ([]byte, error) {
	if err := s.errs[mode]; err != nil {
		return nil, err
	}
	return []byte(s.bodies[mode]), nil
}

const practiceCSV = "Question,Correct Answer,Distractor 1,Distractor 2,Distractor 3,Group\n" +
	"Minkä tyyppinen verbi on antaa?,type1,type2,type3,type4,1\n" +
	"Minkä tyyppinen verbi on tulla?,type3,type1,type2,type4,2\n"

const vocabCSV = "word,Definition,example,group\n" +
	"talo,house,Talo on iso.,1\n" +
	"koira,dog,,1\n"

type fixture struct {
	session  *quiz.Session
	recorder *speech.Recorder
	loader   *stubLoader
	router   http.Handler
}

func newFixture(t *testing.T, basePath string) *fixture {
	t.Helper()
	loader := &stubLoader{
		bodies: map[model.Mode]string{model.ModePractice: practiceCSV, model.ModeVocab: vocabCSV},
		errs:   map[model.Mode]error{},
	}
	rec := &speech.Recorder{}
	sess := quiz.NewSession(loader, quiz.SessionOptions{
		Speaker: rec,
		Shuffle: func(int, func(i, j int)) {},
	})
	h, err := New(sess, rec, model.QuizConfig{BasePath: basePath}, "en")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(appI18n.Middleware("en"))
	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}
	return &fixture{session: sess, recorder: rec, loader: loader, router: r}
}

func (f *fixture) load(t *testing.T, mode model.Mode) {
	t.Helper()
	if err := f.session.Load(context.Background(), mode); err != nil {
		t.Fatalf("Load(%s): %v", mode, err)
	}
}

func (f *fixture) do(t *testing.T, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) page(t *testing.T) string {
	t.Helper()
	rr := f.do(t, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rr.Code)
	}
	return rr.Body.String()
}

func TestIndexShowsQuestionAndGroups(t *testing.T) {
	f := newFixture(t, "")
	f.load(t, model.ModePractice)

	body := f.page(t)
	for _, want := range []string{
		"Minkä tyyppinen verbi on antaa?",
		`value="type1"`,
		`value="type4"`,
		"Group 1",
		"Group 2",
		"Question 1 of 1",
		"1 question in this group.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestAnswerShowsFeedbackAndSpeech(t *testing.T) {
	f := newFixture(t, "")
	f.load(t, model.ModePractice)

	rr := f.do(t, http.MethodPost, "/answer", url.Values{"option": {"type2"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("POST /answer = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	body := f.page(t)
	if !strings.Contains(body, "The correct answer is: type1") {
		t.Error("missing incorrect-answer feedback")
	}
	if !strings.Contains(body, "SpeechSynthesisUtterance") || !strings.Contains(body, "antaa") {
		t.Error("missing speech script")
	}
	if !strings.Contains(body, `data-state="wrong"`) || !strings.Contains(body, `data-state="correct"`) {
		t.Error("options not marked after answering")
	}

	// The utterance is played once.
	if strings.Contains(f.page(t), "SpeechSynthesisUtterance") {
		t.Error("speech script repeated on reload")
	}

	f.do(t, http.MethodPost, "/next", url.Values{})
	if body := f.page(t); !strings.Contains(body, "This practice set is complete!") {
		t.Error("expected completion message after last question")
	}
}

func TestNextAvailableBeforeAnswering(t *testing.T) {
	f := newFixture(t, "")
	f.load(t, model.ModeVocab)

	tests := []struct {
		name string
		want []string
	}{
		{"first question", []string{`action="/next"`, "Question 1 of 2", "2 questions in this group."}},
		{"skipped to second", []string{`action="/next"`, "Question 2 of 2"}},
	}
	for i, tt := range tests {
		if i > 0 {
			if rr := f.do(t, http.MethodPost, "/next", url.Values{}); rr.Code != http.StatusSeeOther {
				t.Fatalf("POST /next = %d", rr.Code)
			}
		}
		body := f.page(t)
		for _, want := range tt.want {
			if !strings.Contains(body, want) {
				t.Errorf("%s: page missing %q", tt.name, want)
			}
		}
		if strings.Contains(body, "autofocus") {
			t.Errorf("%s: next button focused before an answer", tt.name)
		}
	}
}

func TestGroupSelection(t *testing.T) {
	f := newFixture(t, "")
	f.load(t, model.ModePractice)

	rr := f.do(t, http.MethodPost, "/group", url.Values{"group": {"2"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("POST /group = %d", rr.Code)
	}
	if !strings.Contains(f.page(t), "tulla") {
		t.Error("group 2 question not shown")
	}

	for _, g := range []string{"9", "abc"} {
		if rr := f.do(t, http.MethodPost, "/group", url.Values{"group": {g}}); rr.Code != http.StatusBadRequest {
			t.Errorf("POST /group %q = %d, want 400", g, rr.Code)
		}
	}
}

func TestModeSwitch(t *testing.T) {
	f := newFixture(t, "")
	f.load(t, model.ModePractice)

	rr := f.do(t, http.MethodPost, "/mode", url.Values{"mode": {"vocabulary"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("POST /mode = %d", rr.Code)
	}
	body := f.page(t)
	if !strings.Contains(body, "Word: talo") && !strings.Contains(body, "Word: koira") {
		t.Error("vocab question not shown")
	}

	if rr := f.do(t, http.MethodPost, "/mode", url.Values{"mode": {"chess"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown mode = %d, want 400", rr.Code)
	}
}

func TestErrorBanners(t *testing.T) {
	tests := []struct {
		name  string
		setup func(l *stubLoader)
		want  string
	}{
		{
			name: "fetch failure",
			setup: func(l *stubLoader) {
				l.errs[model.ModeVocab] = &quiz.FetchError{Mode: model.ModeVocab, StatusCode: 500}
			},
			want: "Could not load data.",
		},
		{
			name: "unexpected format",
			setup: func(l *stubLoader) {
				l.bodies[model.ModeVocab] = "<html>\n<body>sign in</body>\n"
			},
			want: "The sheet data is not in the expected format.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			f.load(t, model.ModePractice)
			tt.setup(f.loader)

			f.do(t, http.MethodPost, "/mode", url.Values{"mode": {"vocab"}})
			body := f.page(t)
			if !strings.Contains(body, tt.want) {
				t.Errorf("page missing banner %q", tt.want)
			}
			if strings.Contains(body, `name="group"`) {
				t.Error("group selector should be cleared on error")
			}
		})
	}
}

func TestAPIState(t *testing.T) {
	f := newFixture(t, "")
	f.load(t, model.ModePractice)

	rr := f.do(t, http.MethodGet, "/api/state", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/state = %d", rr.Code)
	}
	var st map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st["mode"] != "practice" || st["selected"] != float64(1) {
		t.Errorf("state = %v", st)
	}
	q, ok := st["question"].(map[string]any)
	if !ok {
		t.Fatalf("question missing: %v", st)
	}
	if _, leaked := q["answer"]; leaked {
		t.Error("state must not reveal the answer")
	}
}

func TestAPIAnswer(t *testing.T) {
	f := newFixture(t, "")

	answer := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader(body))
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		return rr
	}

	if rr := answer(`{"option":"type1"}`); rr.Code != http.StatusConflict {
		t.Errorf("answer before load = %d, want 409", rr.Code)
	}

	f.load(t, model.ModePractice)
	if rr := answer(`not json`); rr.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d, want 400", rr.Code)
	}

	rr := answer(`{"option":"type1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("POST /api/answer = %d: %s", rr.Code, rr.Body.String())
	}
	var fb quiz.Feedback
	if err := json.Unmarshal(rr.Body.Bytes(), &fb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !fb.Correct || fb.Answer != "type1" || fb.Speech.Text != "antaa" {
		t.Errorf("feedback = %+v", fb)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, "")
	rr := f.do(t, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "ok" {
		t.Errorf("GET /healthz = %d %q", rr.Code, rr.Body.String())
	}
}

func TestBasePath(t *testing.T) {
	f := newFixture(t, "/fi")
	f.load(t, model.ModePractice)

	rr := f.do(t, http.MethodGet, "/fi/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /fi/ = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `action="/fi/answer"`) {
		t.Error("form actions should carry the base path")
	}

	rr = f.do(t, http.MethodPost, "/fi/next", url.Values{})
	if loc := rr.Header().Get("Location"); loc != "/fi/" {
		t.Errorf("redirect = %q, want /fi/", loc)
	}
}

func TestNewRequiresSession(t *testing.T) {
	if _, err := New(nil, nil, model.QuizConfig{}, "en"); err == nil {
		t.Error("expected error for nil session")
	}
}
