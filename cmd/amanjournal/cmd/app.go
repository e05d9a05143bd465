package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanjournal/internal/config"
	"github.com/Aman-CERP/amanjournal/internal/document"
	"github.com/Aman-CERP/amanjournal/internal/embed"
	jerrors "github.com/Aman-CERP/amanjournal/internal/errors"
	"github.com/Aman-CERP/amanjournal/internal/journal"
	"github.com/Aman-CERP/amanjournal/internal/lexical"
	"github.com/Aman-CERP/amanjournal/internal/logging"
	"github.com/Aman-CERP/amanjournal/internal/output"
	"github.com/Aman-CERP/amanjournal/internal/snapshot"
)

// app is one loaded journal plus everything needed to shut it down.
type app struct {
	dir     string
	cfg     *config.Config
	docs    *document.FileStore
	journal *journal.Coordinator
	out     *output.Writer
	logger  *slog.Logger

	closers []func()
}

// openOptions tunes openJournal for a command.
type openOptions struct {
	// quiet keeps logs off stderr even with --debug.
	quiet bool
}

// openJournal loads the journal at dir: config, logging, snapshot backend,
// embedding provider, and finally the Coordinator's Load.
func openJournal(cmd *cobra.Command, g *globalOptions, dir string, oo openOptions) (*app, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, jerrors.New(jerrors.ErrCodeJournalDir, "invalid journal path", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, jerrors.New(jerrors.ErrCodeJournalDir, "journal directory not found", err).
			WithDetail("journal", abs).
			WithSuggestion("pass the directory that holds your journal entries")
	}

	cfg, err := config.LoadFrom(g.userConfigPath(), abs)
	if err != nil {
		return nil, err
	}

	a := &app{dir: abs, cfg: cfg, out: g.writer(cmd)}

	a.logger = a.setupLogging(g, oo)
	slog.SetDefault(a.logger)

	snaps, err := snapshot.Open(snapshot.Options{
		Backend:    cfg.Snapshots.Backend,
		Dir:        cfg.Snapshots.Dir,
		SQLitePath: cfg.SQLitePathFor(abs),
	})
	if err != nil {
		a.Close()
		return nil, jerrors.New(jerrors.ErrCodeSnapshotRead, "cannot open snapshot backend", err).
			WithDetail("backend", cfg.Snapshots.Backend)
	}
	a.closers = append(a.closers, func() { _ = snaps.Close() })

	embedder, err := newEmbedder(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if embedder != nil {
		a.closers = append(a.closers, func() { _ = embedder.Close() })
	} else {
		a.logger.Info("vector_search_disabled", slog.String("reason", "no embedding provider configured"))
	}

	a.docs = document.NewFileStore(a.logger)
	a.journal = journal.New(journal.Config{
		Docs:      a.docs,
		Snapshots: snaps,
		Embedder:  embedder,
		Lexical: lexical.Options{
			MaxResults: cfg.Search.MaxResults,
			TitleBoost: cfg.Search.TitleBoost,
		},
		VectorTopN: cfg.Search.VectorTopN,
		Workers:    cfg.Embeddings.Workers,
		Logger:     a.logger,
	})
	a.closers = append(a.closers, func() { _ = a.journal.Close() })

	if _, err := a.journal.Load(cmd.Context(), abs); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// setupLogging routes slog to the configured log file. A log file that
// cannot be opened falls back to stderr.
func (a *app) setupLogging(g *globalOptions, oo openOptions) *slog.Logger {
	lc := logging.Config{
		Level:         a.cfg.Logging.Level,
		FilePath:      a.cfg.Logging.FilePath,
		MaxSizeMB:     a.cfg.Logging.MaxSizeMB,
		MaxFiles:      a.cfg.Logging.MaxFiles,
		WriteToStderr: a.cfg.Logging.Stderr,
	}
	if g.debug {
		lc.Level = "debug"
		lc.WriteToStderr = true
	}
	if oo.quiet {
		lc.WriteToStderr = false
	}

	logger, cleanup, err := logging.Setup(lc)
	if err != nil {
		fallback := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logging.LevelFromString(lc.Level)}))
		fallback.Warn("log_file_unavailable", slog.String("error", err.Error()))
		return fallback
	}
	a.closers = append(a.closers, cleanup)
	return logger
}

// Close releases the journal, provider, snapshot backend and log file, in
// reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newEmbedder builds the configured provider. A missing provider is not an
// error: it returns nil and vector search stays disabled.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	ec, err := embedConfig(cfg)
	if err != nil {
		return nil, err
	}
	e, err := embed.NewEmbedder(ec)
	if errors.Is(err, embed.ErrNoProvider) {
		return nil, nil
	}
	if err != nil {
		return nil, jerrors.ConfigError("cannot create embedding provider", err)
	}
	return e, nil
}

// embedConfig maps the embeddings config section onto the provider config.
func embedConfig(cfg *config.Config) (embed.Config, error) {
	e := cfg.Embeddings
	provider, err := embed.ParseProvider(e.Provider)
	if err != nil {
		return embed.Config{}, jerrors.ConfigError("invalid embedding provider", err)
	}

	ec := embed.Config{
		Provider:   provider,
		Model:      strings.TrimSpace(e.Model),
		APIKey:     e.APIKey,
		Timeout:    e.Timeout,
		MaxRetries: e.MaxRetries,
		CacheSize:  e.CacheSize,
	}
	switch provider {
	case embed.ProviderOllama:
		ec.BaseURL = e.OllamaHost
	case embed.ProviderOpenAI:
		ec.BaseURL = e.OpenAIBaseURL
	case embed.ProviderGemini:
		ec.BaseURL = e.GeminiBaseURL
	}
	return ec, nil
}
