package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/flashquiz/internal/handler/views"
	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/quiz"
	"github.com/pavelanni/flashquiz/internal/speech"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	session  *quiz.Session
	recorder *speech.Recorder
	config   model.QuizConfig
	uiLang   string
}

// New creates a new Handler. recorder may be nil when speech is delivered
// server side only.
func New(s *quiz.Session, rec *speech.Recorder, cfg model.QuizConfig, uiLang string) (*Handler, error) {
	if s == nil {
		return nil, errors.New("handler: nil session")
	}
	return &Handler{session: s, recorder: rec, config: cfg, uiLang: uiLang}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/mode", h.handleMode)
	r.Post("/group", h.handleGroup)
	r.Post("/next", h.handleNext)
	r.Post("/answer", h.handleAnswer)
	r.Post("/reload", h.handleReload)

	r.Get("/api/state", h.handleAPIState)
	r.Post("/api/answer", h.handleAPIAnswer)
	r.Get("/healthz", h.handleHealth)
}

// BasePathMiddleware makes the configured URL prefix available to views.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) backToQuiz(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

// loadContext detaches a load from the request so a navigating browser does
// not abort it; a newer load still cancels it through the session.
func loadContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	v := h.session.Snapshot()
	data := views.QuizData{
		UILang:   h.uiLang,
		Mode:     string(v.Mode),
		Position: v.Position,
		Total:    v.Total,
		Complete: v.Complete,
		Loading:  v.Loading,
		Question: v.Question,
		ErrorKey: errorKey(v.Err),
	}
	for _, g := range v.Groups {
		data.Groups = append(data.Groups, views.GroupOption{Value: quiz.FormatGroup(g), Selected: g == v.Selected})
	}
	if v.Question != nil {
		for _, o := range v.Question.Options {
			opt := views.Option{Text: o}
			if v.Feedback != nil {
				switch {
				case o == v.Feedback.Answer:
					opt.State = "correct"
				case o == v.Feedback.Selected:
					opt.State = "wrong"
				}
			}
			data.Options = append(data.Options, opt)
		}
	}
	if v.Feedback != nil {
		data.Feedback = &views.Feedback{Correct: v.Feedback.Correct, Answer: v.Feedback.Answer}
	}
	if h.recorder != nil {
		if u, ok := h.recorder.Take(); ok {
			data.Speech = &u
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.QuizPage(data).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := model.ParseMode(r.FormValue("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.session.Load(loadContext(r), mode); err != nil && !errors.Is(err, quiz.ErrSuperseded) {
		// The failure is part of the session state and shown as a banner.
		slog.Debug("mode switch load failed", "mode", mode, "error", err)
	}
	h.backToQuiz(w, r)
}

func (h *Handler) handleGroup(w http.ResponseWriter, r *http.Request) {
	v := h.session.Snapshot()
	g, err := quiz.ParseGroup(v.Mode, r.FormValue("group"))
	if err != nil {
		http.Error(w, "invalid group", http.StatusBadRequest)
		return
	}
	switch err := h.session.SelectGroup(g); {
	case errors.Is(err, quiz.ErrUnknownGroup):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Debug("group selection ignored", "group", g, "error", err)
	}
	h.backToQuiz(w, r)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	h.session.Next()
	h.backToQuiz(w, r)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Answer(r.Context(), r.FormValue("option")); err != nil {
		slog.Debug("answer ignored", "error", err)
	}
	h.backToQuiz(w, r)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Reload(loadContext(r)); err != nil && !errors.Is(err, quiz.ErrSuperseded) {
		slog.Debug("reload failed", "error", err)
	}
	h.backToQuiz(w, r)
}

type apiQuestion struct {
	Kind        model.Mode `json:"kind"`
	DisplayText string     `json:"display_text"`
	Options     []string   `json:"options"`
	Example     string     `json:"example,omitempty"`
}

type apiState struct {
	Mode     model.Mode     `json:"mode"`
	Groups   []float64      `json:"groups"`
	Selected float64        `json:"selected"`
	Question *apiQuestion   `json:"question,omitempty"`
	Position int            `json:"position"`
	Total    int            `json:"total"`
	Complete bool           `json:"complete"`
	Loading  bool           `json:"loading"`
	Feedback *quiz.Feedback `json:"feedback,omitempty"`
	Error    string         `json:"error,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (h *Handler) handleAPIState(w http.ResponseWriter, r *http.Request) {
	v := h.session.Snapshot()
	st := apiState{
		Mode:     v.Mode,
		Groups:   v.Groups,
		Selected: v.Selected,
		Position: v.Position,
		Total:    v.Total,
		Complete: v.Complete,
		Loading:  v.Loading,
		Feedback: v.Feedback,
	}
	if st.Groups == nil {
		st.Groups = []float64{}
	}
	if v.Question != nil {
		st.Question = &apiQuestion{
			Kind:        v.Question.Kind,
			DisplayText: v.Question.DisplayText,
			Options:     v.Question.Options,
			Example:     v.Question.Example,
		}
	}
	if v.Err != nil {
		st.Error = v.Err.Error()
	}
	for _, wr := range v.Warnings {
		st.Warnings = append(st.Warnings, wr.String())
	}
	writeJSON(w, http.StatusOK, st)
}

type answerRequest struct {
	Option string `json:"option"`
}

func (h *Handler) handleAPIAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	fb, err := h.session.Answer(r.Context(), req.Option)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, quiz.ErrNotLoaded) || errors.Is(err, quiz.ErrNoData) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// errorKey maps a load failure to the banner message shown to the user.
func errorKey(err error) string {
	if err == nil {
		return ""
	}
	var pe *quiz.ParseError
	if errors.As(err, &pe) {
		return "FormatError"
	}
	return "LoadError"
}
