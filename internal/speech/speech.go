// Package speech delivers spoken feedback after an answer is checked.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang is the language studied by the bundled sheets.
const DefaultLang = "fi-FI"

// Utterance is a single piece of text to vocalize.
type Utterance struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

// Speaker vocalizes an utterance. Implementations must not block the caller
// on playback; failures are logged, never returned.
type Speaker interface {
	Speak(ctx context.Context, u Utterance)
}

// NormalizeLang validates a BCP 47 tag and returns its canonical form.
func NormalizeLang(tag string) (string, error) {
	if strings.TrimSpace(tag) == "" {
		return DefaultLang, nil
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("parse speech language %q: %w", tag, err)
	}
	return t.String(), nil
}

// Log writes utterances to the default logger.
type Log struct{}

func (Log) Speak(ctx context.Context, u Utterance) {
	if u.Text == "" {
		return
	}
	slog.InfoContext(ctx, "speak", "text", u.Text, "lang", u.Lang)
}

// Recorder keeps the most recent utterance so a client surface (the web page)
// can play it with its own synthesizer.
type Recorder struct {
	mu   sync.Mutex
	last *Utterance
}

func (r *Recorder) Speak(_ context.Context, u Utterance) {
	if u.Text == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = &u
}

// Take returns and clears the pending utterance.
func (r *Recorder) Take() (Utterance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Utterance{}, false
	}
	u := *r.last
	r.last = nil
	return u, true
}

// Command runs an external text-to-speech program, e.g. "espeak-ng -v {lang}".
// The placeholder {lang} is replaced by the primary language subtag and the
// text is appended as the last argument.
type Command struct {
	Program string
	Args    []string

	run func(ctx context.Context, name string, args ...string) error
}

// NewCommand splits a command line into program and arguments.
func NewCommand(cmdline string) (*Command, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty speech command")
	}
	return &Command{Program: fields[0], Args: fields[1:]}, nil
}

func (c *Command) Speak(ctx context.Context, u Utterance) {
	if u.Text == "" {
		return
	}
	args := c.argv(u)
	run := c.run
	if run == nil {
		run = startDetached
	}
	if err := run(context.WithoutCancel(ctx), c.Program, args...); err != nil {
		slog.Warn("speech command failed", "program", c.Program, "error", err)
	}
}

func (c *Command) argv(u Utterance) []string {
	primary := u.Lang
	if t, err := language.Parse(u.Lang); err == nil {
		base, _ := t.Base()
		primary = base.String()
	}
	args := make([]string, 0, len(c.Args)+1)
	for _, a := range c.Args {
		args = append(args, strings.ReplaceAll(a, "{lang}", primary))
	}
	return append(args, u.Text)
}

func startDetached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("speech command exited", "program", name, "error", err)
		}
	}()
	return nil
}

// Multi fans an utterance out to several speakers.
type Multi []Speaker

func (m Multi) Speak(ctx context.Context, u Utterance) {
	for _, s := range m {
		s.Speak(ctx, u)
	}
}
