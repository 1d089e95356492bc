package speech

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestNormalizeLang(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultLang, false},
		{"fi-FI", "fi-FI", false},
		{"en", "en", false},
		{"zh-CN", "zh-CN", false},
		{"not a tag!", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeLang(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeLang(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeLang(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRecorderTake(t *testing.T) {
	var r Recorder
	if _, ok := r.Take(); ok {
		t.Fatal("expected nothing pending")
	}

	r.Speak(context.Background(), Utterance{Text: "antaa", Lang: "fi-FI"})
	r.Speak(context.Background(), Utterance{Text: ""})

	u, ok := r.Take()
	if !ok || u.Text != "antaa" || u.Lang != "fi-FI" {
		t.Fatalf("Take() = %+v, %v", u, ok)
	}
	if _, ok := r.Take(); ok {
		t.Error("Take should clear the pending utterance")
	}
}

func TestCommandArgs(t *testing.T) {
	c, err := NewCommand("espeak-ng -v {lang}")
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}

	var gotName string
	var gotArgs []string
	c.run = func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		return nil
	}
	c.Speak(context.Background(), Utterance{Text: "talo", Lang: "fi-FI"})

	if gotName != "espeak-ng" {
		t.Errorf("program = %q", gotName)
	}
	if want := []string{"-v", "fi", "talo"}; !slices.Equal(gotArgs, want) {
		t.Errorf("args = %q, want %q", gotArgs, want)
	}
}

func TestCommandFailureIsSwallowed(t *testing.T) {
	c := &Command{Program: "tts", run: func(context.Context, string, ...string) error {
		return errors.New("boom")
	}}
	c.Speak(context.Background(), Utterance{Text: "x", Lang: "fi"})
}

func TestNewCommandEmpty(t *testing.T) {
	if _, err := NewCommand("  "); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestMulti(t *testing.T) {
	var a, b Recorder
	Multi{&a, &b, Log{}}.Speak(context.Background(), Utterance{Text: "koira", Lang: "fi"})
	if _, ok := a.Take(); !ok {
		t.Error("first speaker not called")
	}
	if _, ok := b.Take(); !ok {
		t.Error("second speaker not called")
	}
}
