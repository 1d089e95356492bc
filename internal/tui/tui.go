// Package tui is a terminal player over a quiz.Session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appI18n "github.com/pavelanni/flashquiz/internal/i18n"
	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/quiz"
)

var (
	styleHeader    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleCorrect   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleIncorrect = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleSelected  = lipgloss.NewStyle().Background(lipgloss.Color("22")).Foreground(lipgloss.Color("15"))
	styleSubtle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleError     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(1, 0)
	styleQuestion  = lipgloss.NewStyle().Bold(true).Padding(1, 0)
)

// maxOptions is the most answer keys the player binds (1-5).
const maxOptions = 5

type loadedMsg struct{ err error }

// Model is the bubbletea model for the player.
type Model struct {
	ctx     context.Context
	session *quiz.Session
	start   model.Mode
	view    quiz.View
	status  string
}

// New creates a player that loads start on Init. ctx carries the localizer.
func New(ctx context.Context, s *quiz.Session, start model.Mode) Model {
	return Model{ctx: ctx, session: s, start: start, view: s.Snapshot()}
}

func (m Model) load(mode model.Mode) tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return loadedMsg{err: s.Load(ctx, mode)}
	}
}

func (m Model) reload() tea.Cmd {
	ctx, s := m.ctx, m.session
	return func() tea.Msg {
		return loadedMsg{err: s.Reload(ctx)}
	}
}

func (m Model) Init() tea.Cmd {
	return m.load(m.start)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case loadedMsg:
		if errors.Is(msg.err, quiz.ErrSuperseded) {
			return m, nil
		}
	case tea.KeyMsg:
		m.status = ""
		switch key := msg.String(); key {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "1", "2", "3", "4", "5":
			m.answer(int(key[0] - '1'))
		case "n", "enter", " ":
			m.session.Next()
		case "m":
			next := model.ModeVocab
			if m.view.Mode == model.ModeVocab {
				next = model.ModePractice
			}
			cmd = m.load(next)
		case "g":
			m.cycleGroup(1)
		case "G":
			m.cycleGroup(-1)
		case "r":
			cmd = m.reload()
		}
	}
	m.view = m.session.Snapshot()
	if cmd != nil {
		m.view.Loading = true
	}
	return m, cmd
}

func (m *Model) answer(i int) {
	q := m.view.Question
	if q == nil || m.view.Feedback != nil || i >= len(q.Options) {
		return
	}
	if _, err := m.session.Answer(m.ctx, q.Options[i]); err != nil {
		m.status = err.Error()
	}
}

func (m *Model) cycleGroup(step int) {
	groups := m.view.Groups
	if len(groups) == 0 {
		return
	}
	i := slices.Index(groups, m.view.Selected)
	i = (i + step + len(groups)) % len(groups)
	if err := m.session.SelectGroup(groups[i]); err != nil {
		m.status = err.Error()
	}
}

func (m Model) View() string {
	var b strings.Builder
	t := func(id string) string { return appI18n.T(m.ctx, id) }

	modeName := t("ModePractice")
	if m.view.Mode == model.ModeVocab {
		modeName = t("ModeVocab")
	}
	b.WriteString(styleHeader.Render(fmt.Sprintf("%s · %s", t("AppTitle"), modeName)))
	b.WriteString("\n")

	if len(m.view.Groups) > 0 {
		var parts []string
		for _, g := range m.view.Groups {
			label := appI18n.Td(m.ctx, "GroupN", map[string]any{"N": quiz.FormatGroup(g)})
			if g == m.view.Selected {
				label = styleSelected.Render(label)
			}
			parts = append(parts, label)
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
	}

	switch {
	case m.view.Loading:
		b.WriteString("\n" + t("Loading") + "\n")
	case m.view.Err != nil:
		key := "LoadError"
		var pe *quiz.ParseError
		if errors.As(m.view.Err, &pe) {
			key = "FormatError"
		}
		b.WriteString(styleError.Render(t(key)) + "\n")
	case m.view.Complete:
		key := "PracticeComplete"
		if m.view.Mode == model.ModeVocab {
			key = "VocabComplete"
		}
		b.WriteString("\n" + styleCorrect.Render(t(key)) + "\n")
	case m.view.Question != nil:
		m.writeQuestion(&b)
	}

	if m.status != "" {
		b.WriteString(styleIncorrect.Render(m.status) + "\n")
	}
	b.WriteString("\n" + styleSubtle.Render(t("TUIHelp")) + "\n")
	return b.String()
}

func (m Model) writeQuestion(b *strings.Builder) {
	q := m.view.Question
	fb := m.view.Feedback

	b.WriteString(styleSubtle.Render(appI18n.Td(m.ctx, "Progress", map[string]any{
		"Position": m.view.Position,
		"Total":    m.view.Total,
	})))
	b.WriteString("\n")

	prompt := q.DisplayText
	if q.Kind == model.ModeVocab {
		prompt = appI18n.Td(m.ctx, "WordLabel", map[string]any{"Word": q.DisplayText})
	}
	b.WriteString(styleQuestion.Render(prompt))
	b.WriteString("\n")

	for i, o := range q.Options {
		if i >= maxOptions {
			break
		}
		line := fmt.Sprintf("%d) %s", i+1, o)
		if fb != nil {
			switch o {
			case fb.Answer:
				line = styleCorrect.Render(line)
			case fb.Selected:
				line = styleIncorrect.Render(line)
			}
		}
		b.WriteString(line + "\n")
	}

	if fb == nil {
		return
	}
	b.WriteString("\n")
	if fb.Correct {
		b.WriteString(styleCorrect.Render(appI18n.T(m.ctx, "Correct")))
	} else {
		b.WriteString(styleIncorrect.Render(appI18n.Td(m.ctx, "Incorrect", map[string]any{"Answer": fb.Answer})))
	}
	b.WriteString("\n")
	if q.Example != "" {
		b.WriteString(styleSubtle.Render(appI18n.Td(m.ctx, "Example", map[string]any{"Example": q.Example})) + "\n")
	}
}
