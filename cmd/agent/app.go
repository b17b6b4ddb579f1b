package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	aoption "github.com/anthropics/anthropic-sdk-go/option"
	ooption "github.com/openai/openai-go/v3/option"
	"github.com/urfave/cli/v3"

	"github.com/petasbytes/snapbooks/internal/config"
	"github.com/petasbytes/snapbooks/internal/contacts"
	"github.com/petasbytes/snapbooks/internal/fsops"
	"github.com/petasbytes/snapbooks/internal/invoice"
	"github.com/petasbytes/snapbooks/internal/provider"
	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/internal/telemetry"
	"github.com/petasbytes/snapbooks/internal/usage"
	"github.com/petasbytes/snapbooks/memory"
	"github.com/petasbytes/snapbooks/tools"
)

// app holds the process-wide components. The SQLite handle is shared by
// every store that needs one.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *sql.DB
	store    memory.Store
	sessions memory.SessionIndex
	archive  *invoice.Archive
	contacts *contacts.Book
	ledger   *usage.Store
}

// loadConfig resolves the config file and applies flag overrides. A
// missing file is only an error when --config names it.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Default()
	path, err := config.FindConfig(cmd.String("config"))
	switch {
	case err == nil:
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	case cmd.String("config") != "":
		return nil, err
	}

	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.LogFormat = cmd.String("log-format")
	}
	if cmd.IsSet("model") {
		cfg.Models.Default = cmd.String("model")
	}
	if cmd.IsSet("max-calls") {
		cfg.Models.MaxCalls = cmd.Int("max-calls")
	}
	if cmd.IsSet("data-dir") {
		cfg.Storage.DataDir = cmd.String("data-dir")
	}
	return cfg, nil
}

// openApp builds the logger and the stores. Model configuration is only
// validated by commands that call a model.
func openApp(cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		telemetry.Configure(&telemetry.Options{Enabled: true, Dir: cfg.Telemetry.Dir})
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", memory.SQLiteDSN(cfg.DatabasePath()))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: db}
	if err := a.openStores(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("storage_ready",
		"backend", cfg.Storage.Backend,
		"database", cfg.DatabasePath(),
	)
	return a, nil
}

func (a *app) openStores() error {
	var err error
	if a.archive, err = invoice.NewArchive(a.db); err != nil {
		return err
	}
	if a.contacts, err = contacts.NewBook(a.db); err != nil {
		return err
	}
	if a.ledger, err = usage.NewStore(a.db); err != nil {
		return err
	}

	switch a.cfg.Storage.Backend {
	case config.BackendSQLite:
		s, err := memory.NewSQLiteStore(a.db)
		if err != nil {
			return err
		}
		a.store, a.sessions = s, s
	case config.BackendFile:
		s, err := memory.NewFileStore(a.cfg.ConversationDir())
		if err != nil {
			return err
		}
		a.store, a.sessions = s, s
	case config.BackendMemory:
		s := memory.NewMemoryStore()
		a.store, a.sessions = s, s
	default:
		return fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
	return nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// buildRunner wires providers, tools and the conversation loop.
func (a *app) buildRunner(ctx context.Context) (*runner.Runner, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := os.MkdirAll(a.cfg.Workspace.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	if err := fsops.Configure(a.cfg.Workspace.Dir, a.cfg.Workspace.Dir); err != nil {
		return nil, fmt.Errorf("configure workspace: %w", err)
	}
	system, err := a.cfg.SystemPrompt()
	if err != nil {
		return nil, err
	}

	model, gemini, err := a.buildModel(ctx)
	if err != nil {
		return nil, err
	}

	deps := tools.Deps{
		Invoices: a.archive,
		Contacts: a.contacts,
		Logger:   a.logger,
	}
	if gemini != nil {
		deps.Searcher = &provider.GeminiSearcher{
			Gemini: gemini,
			Model:  a.cfg.Models.SearchModel,
			Logger: a.logger,
		}
	}
	registry, err := tools.NewRegistry(tools.Builtin(deps)...)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	loop := &runner.Loop{
		Model:    model,
		ModelID:  a.cfg.Models.Default,
		System:   system,
		Registry: registry,
		Dispatcher: &runner.Dispatcher{
			Registry:    registry,
			MaxParallel: a.cfg.Models.MaxParallelTools,
			Logger:      a.logger,
		},
		Accountant: &usage.Accountant{
			Pricing: a.cfg.PricingTable(),
			Ledger:  a.ledger,
			Logger:  a.logger,
		},
		MaxCalls: a.cfg.Models.MaxCalls,
		Logger:   a.logger,
	}
	a.logger.Info("agent_ready",
		"model", a.cfg.Models.Default,
		"tools", len(registry.Descriptors()),
		"max_calls", a.cfg.Models.MaxCalls,
	)
	return runner.New(a.store, loop, a.logger), nil
}

// buildModel registers every provider that has a key and wraps the router
// in retries. The Gemini client is returned for web search.
func (a *app) buildModel(ctx context.Context) (provider.Model, *provider.Gemini, error) {
	p := a.cfg.Providers
	routes := make(map[string]provider.Model)

	var gemini *provider.Gemini
	if p.Gemini.APIKey != "" {
		g, err := provider.NewGemini(ctx, provider.GeminiConfig{
			APIKey:  p.Gemini.APIKey,
			BaseURL: p.Gemini.BaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		gemini = g
		routes["gemini-"] = g
	}
	if p.Anthropic.APIKey != "" {
		opts := []aoption.RequestOption{aoption.WithAPIKey(p.Anthropic.APIKey)}
		if p.Anthropic.BaseURL != "" {
			opts = append(opts, aoption.WithBaseURL(p.Anthropic.BaseURL))
		}
		routes["claude-"] = &provider.Anthropic{
			Client:    provider.NewAnthropicClient(opts...),
			MaxTokens: provider.DefaultMaxTokens,
		}
	}
	if p.OpenAI.APIKey != "" {
		opts := []ooption.RequestOption{ooption.WithAPIKey(p.OpenAI.APIKey)}
		if p.OpenAI.BaseURL != "" {
			opts = append(opts, ooption.WithBaseURL(p.OpenAI.BaseURL))
		}
		oa := provider.NewOpenAI(opts...)
		for _, prefix := range []string{"gpt-", "o1", "o3", "o4"} {
			routes[prefix] = oa
		}
	}
	if len(routes) == 0 {
		return nil, nil, errors.New("no model provider has an API key")
	}

	router := provider.NewRouter(routes)
	return provider.WithRetry(router, a.cfg.RetryPolicy(), a.logger), gemini, nil
}
