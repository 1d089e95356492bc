package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/flashquiz/internal/cache"
	"github.com/pavelanni/flashquiz/internal/handler"
	appI18n "github.com/pavelanni/flashquiz/internal/i18n"
	"github.com/pavelanni/flashquiz/internal/model"
	"github.com/pavelanni/flashquiz/internal/quiz"
	"github.com/pavelanni/flashquiz/internal/source"
	"github.com/pavelanni/flashquiz/internal/speech"
	"github.com/pavelanni/flashquiz/internal/store"
	"github.com/pavelanni/flashquiz/internal/table"
	"github.com/pavelanni/flashquiz/internal/tui"
)

const (
	defaultPracticeURL = "https://docs.google.com/spreadsheets/d/1_3YwljVW1L0v-lQkL0qQUls5E1amPSTmpQGCSVEHj6E/export?format=csv"
	defaultVocabURL    = "https://docs.google.com/spreadsheets/d/1VD4SYUVH5An14uS8cxzGlREbRx2eL6SeWUMBpNWp9ZQ/export?format=csv"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flashquiz",
		Short: "Multiple-choice drills from shared spreadsheets",
	}

	serve := serveCmd()
	root.AddCommand(serve, playCmd(), exportCmd(), groupsCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `flashquiz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addSourceFlags registers the flags every command needs to reach the sheets.
func addSourceFlags(cmd *cobra.Command, logFile string) {
	f := cmd.Flags()
	f.String("practice-url", defaultPracticeURL, "CSV/XLSX export URL of the practice sheet")
	f.String("vocab-url", defaultVocabURL, "CSV/XLSX export URL of the vocabulary sheet")
	f.String("format", "auto", "Sheet format (auto, csv, xlsx)")
	f.String("cache", "sqlite", "Raw sheet cache backend (sqlite, redis, none)")
	f.String("db", "flashquiz.db", "SQLite database path")
	f.String("redis-addr", "localhost:6379", "Redis address for --cache=redis")
	f.Duration("cache-ttl", source.DefaultCacheTTL, "How long a fetched sheet is reused (0 disables caching)")
	f.Bool("clear-cache", false, "Drop cached sheet bodies before the first fetch")
	f.Duration("fetch-timeout", 30*time.Second, "HTTP timeout for sheet downloads")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	f.String("log-file", logFile, "Write logs to this file instead of stderr")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	addSourceFlags(cmd, "")
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "UI language (en, fi, zh)")
	f.StringP("mode", "m", "practice", "Mode loaded at startup (practice, vocab)")
	f.String("speech-lang", speech.DefaultLang, "BCP 47 language tag for spoken feedback")
	f.String("speech-command", "", "External TTS command, e.g. \"espeak-ng -v {lang}\"")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /fi)")
	return cmd
}

func playCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run the quiz in the terminal",
		RunE:  runPlay,
	}
	// The terminal belongs to the player, so logs go to a file.
	addSourceFlags(cmd, "flashquiz.log")
	f := cmd.Flags()
	f.StringP("lang", "l", "en", "UI language (en, fi, zh)")
	f.StringP("mode", "m", "practice", "Mode loaded at startup (practice, vocab)")
	f.String("speech-lang", speech.DefaultLang, "BCP 47 language tag for spoken feedback")
	f.String("speech-command", "", "External TTS command, e.g. \"espeak-ng -v {lang}\"")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the question set of one group as JSON",
		RunE:  runExport,
	}
	addSourceFlags(cmd, "")
	f := cmd.Flags()
	f.StringP("mode", "m", "practice", "Mode to export (practice, vocab)")
	f.StringP("group", "g", "", "Group to export (default: the group selected at startup)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func groupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List the groups of a sheet with their question counts",
		RunE:  runGroups,
	}
	addSourceFlags(cmd, "")
	cmd.Flags().StringP("mode", "m", "practice", "Mode to inspect (practice, vocab)")
	return cmd
}

func setupLogging(cmd *cobra.Command) (io.Closer, error) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var out io.WriteCloser = nopCloser{os.Stderr}
	if path := v.GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(out, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(out, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
	return out, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("FLASHQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("flashquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/flashquiz")
	v.AddConfigPath("/etc/flashquiz")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// quizConfig assembles the runtime configuration. A "sources" map in the
// config file fills in URLs whose flag was not given explicitly; "columns"
// overrides header labels per mode.
func quizConfig(cmd *cobra.Command, v *viper.Viper) (model.QuizConfig, error) {
	cfg := model.QuizConfig{
		Sources: map[model.Mode]string{
			model.ModePractice: v.GetString("practice-url"),
			model.ModeVocab:    v.GetString("vocab-url"),
		},
		Columns:      map[model.Mode]model.ColumnMap{},
		CacheTTL:     v.GetDuration("cache-ttl"),
		FetchTimeout: v.GetDuration("fetch-timeout"),
	}

	for key, url := range v.GetStringMapString("sources") {
		mode, err := model.ParseMode(key)
		if err != nil {
			return cfg, fmt.Errorf("sources: %w", err)
		}
		if !cmd.Flags().Changed(string(mode) + "-url") {
			cfg.Sources[mode] = url
		}
	}

	var columns map[string]model.ColumnMap
	if err := v.UnmarshalKey("columns", &columns); err != nil {
		return cfg, fmt.Errorf("columns: %w", err)
	}
	for key, cm := range columns {
		mode, err := model.ParseMode(key)
		if err != nil {
			return cfg, fmt.Errorf("columns: %w", err)
		}
		cfg.Columns[mode] = cm
	}

	format, err := table.ParseFormat(v.GetString("format"))
	if err != nil {
		return cfg, err
	}
	cfg.Format = string(format)

	mode, err := model.ParseMode(v.GetString("mode"))
	if err != nil {
		return cfg, err
	}
	cfg.DefaultMode = mode

	if v.IsSet("speech-lang") {
		lang, err := speech.NormalizeLang(v.GetString("speech-lang"))
		if err != nil {
			return cfg, err
		}
		cfg.SpeechLang = lang
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	cfg.BasePath = basePath

	return cfg, nil
}

// openFetcher wires the configured raw cache into a source.Fetcher. The
// returned cleanup releases the cache backend.
func openFetcher(ctx context.Context, v *viper.Viper, cfg model.QuizConfig) (*source.Fetcher, func(), error) {
	opts := []source.Option{source.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout})}
	cleanup := func() {}

	switch backend := strings.ToLower(v.GetString("cache")); backend {
	case "sqlite":
		db, err := store.New(v.GetString("db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		opts = append(opts, source.WithCache(db, cfg.CacheTTL), source.WithHashRecorder(db))
		cleanup = func() { _ = db.Close() }
	case "redis":
		rdb, err := cache.NewRedis(ctx, v.GetString("redis-addr"), cfg.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		opts = append(opts, source.WithCache(rdb, cfg.CacheTTL))
		cleanup = func() { _ = rdb.Close() }
	case "none", "":
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", backend)
	}

	f := source.New(cfg.Sources, opts...)
	if v.GetBool("clear-cache") {
		if err := f.ClearCache(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		slog.Info("raw cache cleared", "backend", v.GetString("cache"))
	}
	slog.Debug("raw cache", "backend", v.GetString("cache"), "ttl", cfg.CacheTTL,
		"practice_url", f.URL(model.ModePractice), "vocab_url", f.URL(model.ModeVocab))
	return f, cleanup, nil
}

func newSpeaker(v *viper.Viper, extra ...speech.Speaker) (speech.Speaker, error) {
	speakers := speech.Multi{speech.Log{}}
	speakers = append(speakers, extra...)
	if cmdline := v.GetString("speech-command"); cmdline != "" {
		c, err := speech.NewCommand(cmdline)
		if err != nil {
			return nil, err
		}
		speakers = append(speakers, c)
	}
	return speakers, nil
}

func newSession(f *source.Fetcher, cfg model.QuizConfig, sp speech.Speaker) *quiz.Session {
	return quiz.NewSession(f, quiz.SessionOptions{
		Columns:    cfg.Columns,
		Format:     table.Format(cfg.Format),
		SpeechLang: cfg.SpeechLang,
		Speaker:    sp,
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	logs, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	defer logs.Close()
	v := viperForCmd(cmd)

	cfg, err := quizConfig(cmd, v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx := context.Background()
	fetcher, cleanup, err := openFetcher(ctx, v, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	recorder := &speech.Recorder{}
	speaker, err := newSpeaker(v, recorder)
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	sess := newSession(fetcher, cfg, speaker)

	// A failed initial load is shown in the page and retried via reload.
	if err := sess.Load(ctx, cfg.DefaultMode); err != nil {
		slog.Warn("initial load failed", "mode", cfg.DefaultMode, "error", err)
	}

	h, err := handler.New(sess, recorder, cfg, lang)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if cfg.BasePath != "" {
		r.Route(cfg.BasePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(cfg.BasePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, cfg.BasePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"mode", cfg.DefaultMode,
		"cache", v.GetString("cache"),
		"cache_ttl", cfg.CacheTTL,
		"speech_lang", cfg.SpeechLang,
		"base_path", cfg.BasePath,
	)
	return http.ListenAndServe(addr, r)
}

func runPlay(cmd *cobra.Command, _ []string) error {
	logs, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	defer logs.Close()
	v := viperForCmd(cmd)

	cfg, err := quizConfig(cmd, v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	ctx := context.Background()
	fetcher, cleanup, err := openFetcher(ctx, v, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	speaker, err := newSpeaker(v)
	if err != nil {
		return fmt.Errorf("speech: %w", err)
	}
	sess := newSession(fetcher, cfg, speaker)

	ctx = appI18n.WithLocalizer(ctx, appI18n.NewLocalizer(lang))
	p := tea.NewProgram(tui.New(ctx, sess, cfg.DefaultMode), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run player: %w", err)
	}
	return nil
}

// cliRun is a loaded session for the batch commands.
type cliRun struct {
	sess    *quiz.Session
	fetcher *source.Fetcher
	mode    model.Mode
	cleanup func()
}

// loadForCLI loads the configured mode for the batch commands.
func loadForCLI(cmd *cobra.Command) (*cliRun, error) {
	v := viperForCmd(cmd)
	cfg, err := quizConfig(cmd, v)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fetcher, cleanup, err := openFetcher(ctx, v, cfg)
	if err != nil {
		return nil, err
	}

	sess := newSession(fetcher, cfg, nil)
	if err := sess.Load(ctx, cfg.DefaultMode); err != nil {
		cleanup()
		return nil, fmt.Errorf("load %s: %w", cfg.DefaultMode, err)
	}
	return &cliRun{sess: sess, fetcher: fetcher, mode: cfg.DefaultMode, cleanup: cleanup}, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	logs, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	defer logs.Close()

	run, err := loadForCLI(cmd)
	if err != nil {
		return err
	}
	defer run.cleanup()
	sess := run.sess

	if gs, _ := cmd.Flags().GetString("group"); gs != "" {
		g, err := quiz.ParseGroup(run.mode, gs)
		if err != nil {
			return fmt.Errorf("parse group %q: %w", gs, err)
		}
		if err := sess.SelectGroup(g); err != nil {
			return fmt.Errorf("select group %s: %w", gs, err)
		}
	}

	view := sess.Snapshot()
	questions := sess.Questions()
	if len(questions) == 0 {
		return fmt.Errorf("group %s: %w", quiz.FormatGroup(view.Selected), quiz.ErrNoData)
	}

	export := model.QuestionSetExport{
		Mode:        run.mode,
		Group:       view.Selected,
		Source:      run.fetcher.URL(run.mode),
		GeneratedAt: time.Now().UTC(),
		Groups:      view.Groups,
		Questions:   questions,
	}
	for _, w := range view.Warnings {
		export.Warnings = append(export.Warnings, w.String())
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath, _ := cmd.Flags().GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported question set",
		"mode", run.mode,
		"group", quiz.FormatGroup(view.Selected),
		"questions", len(questions),
		"output", outPath,
	)
	return nil
}

func runGroups(cmd *cobra.Command, _ []string) error {
	logs, err := setupLogging(cmd)
	if err != nil {
		return err
	}
	defer logs.Close()

	run, err := loadForCLI(cmd)
	if err != nil {
		return err
	}
	defer run.cleanup()
	sess := run.sess

	view := sess.Snapshot()
	out := cmd.OutOrStdout()
	for _, g := range view.Groups {
		if err := sess.SelectGroup(g); err != nil {
			return fmt.Errorf("select group %s: %w", quiz.FormatGroup(g), err)
		}
		marker := " "
		if g == view.Selected {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\t%d\n", marker, quiz.FormatGroup(g), len(sess.Questions()))
	}
	return nil
}
