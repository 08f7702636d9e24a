package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/jobtriage/internal/approval"
	"github.com/jonathan/jobtriage/internal/chat"
	"github.com/jonathan/jobtriage/internal/classifier"
	"github.com/jonathan/jobtriage/internal/compose"
	"github.com/jonathan/jobtriage/internal/config"
	"github.com/jonathan/jobtriage/internal/llm"
	"github.com/jonathan/jobtriage/internal/mail"
	"github.com/jonathan/jobtriage/internal/observability"
	"github.com/jonathan/jobtriage/internal/pipeline"
	"github.com/jonathan/jobtriage/internal/profile"
	"github.com/jonathan/jobtriage/internal/rendering"
	"github.com/jonathan/jobtriage/internal/resume"
	"github.com/jonathan/jobtriage/internal/types"
)

// loadConfig reads the environment and --config file, then applies the
// persistent flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = strings.ToLower(logLevel)
	}
	if logFormat != "" {
		cfg.LogFormat = strings.ToLower(logFormat)
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config and builds the logger. Logs always go to stderr so
// stdout stays clean for JSON output and the MCP transport.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// newLLMClient builds the configured provider, falling back to the other
// provider when both keys are set. It returns a nil client when no key is
// configured; every consumer then runs its rule-based path.
func newLLMClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	keys := map[llm.Provider]string{
		llm.ProviderGemini: cfg.LLM.GeminiAPIKey,
		llm.ProviderOpenAI: cfg.LLM.OpenAIAPIKey,
	}
	build := func(p llm.Provider) (llm.Client, error) {
		if keys[p] == "" {
			return nil, nil
		}
		lc := llm.DefaultConfig(p)
		if p == llm.ProviderOpenAI && cfg.LLM.OpenAIModel != "" {
			lc = lc.WithModel(llm.TierStandard, cfg.LLM.OpenAIModel)
		}
		return llm.NewClient(ctx, lc, keys[p])
	}

	primary := llm.ParseProvider(cfg.LLM.Provider)
	secondary := llm.ProviderGemini
	if primary == llm.ProviderGemini {
		secondary = llm.ProviderOpenAI
	}

	first, err := build(primary)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", primary, err)
	}
	second, err := build(secondary)
	if err != nil {
		logger.Warn("fallback model provider unavailable",
			slog.String("provider", string(secondary)),
			slog.Any("error", err),
		)
		second = nil
	}

	switch {
	case first == nil && second == nil:
		logger.Warn("no LLM API key configured, using rule-based fallbacks")
		return nil, nil
	case first == nil:
		logger.Warn("primary model provider has no API key",
			slog.String("provider", string(primary)),
			slog.String("using", string(secondary)),
		)
		return second, nil
	}
	return llm.NewFallbackClient(first, second, logger), nil
}

// openQueue opens the approval store: Postgres when DATABASE_URL is set,
// the JSON file otherwise. Approvals send through SMTP when configured.
func openQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger, notifier approval.Notifier) (*approval.Queue, func(), error) {
	var (
		store   approval.Store
		closeFn = func() {}
	)
	if cfg.DatabaseURL != "" {
		pg, err := approval.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, closeFn = pg, pg.Close
		logger.Debug("approval queue in postgres")
	} else {
		store = approval.NewFileStore(cfg.QueuePath)
		logger.Debug("approval queue in file", slog.String("path", cfg.QueuePath))
	}

	var sender approval.Sender
	if cfg.SMTPEnabled() {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.FromAddress(),
		}, logger)
	}

	opts := []approval.Option{approval.WithLogger(logger)}
	if notifier != nil {
		opts = append(opts, approval.WithNotifier(notifier))
	}
	return approval.NewQueue(store, sender, opts...), closeFn, nil
}

// runtime is the fully wired pipeline used by serve and mcp.
type runtime struct {
	cfg       *config.Config
	logger    *slog.Logger
	profile   *types.CandidateProfile
	gate      *classifier.Gate
	extractor *classifier.Extractor
	discord   *chat.Discord
	queue     *approval.Queue
	pipeline  *pipeline.Pipeline
	closers   []func()
}

func newRuntime(ctx context.Context, cmd *cobra.Command) (*runtime, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, profile: prof}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	client, err := newLLMClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if client != nil {
		rt.closers = append(rt.closers, func() { _ = client.Close() })
	}

	var notifier approval.Notifier
	if cfg.ChatEnabled() {
		rt.discord, err = chat.NewDiscord(cfg.Discord.Token, cfg.Discord.ChannelID, logger)
		if err != nil {
			return nil, err
		}
		recipient := cfg.Discord.NotifyChannelID
		if recipient == "" {
			recipient = cfg.Discord.ChannelID
		}
		notifier = chat.NewNotifier(rt.discord, recipient, cfg.DashboardURL)
	}

	queue, closeQueue, err := openQueue(ctx, cfg, logger, notifier)
	if err != nil {
		return nil, err
	}
	rt.queue = queue
	rt.closers = append(rt.closers, closeQueue)
	if !cfg.SMTPEnabled() {
		logger.Warn("SMTP not configured, approvals cannot be sent")
	}

	rt.gate = classifier.NewGate(client, classifier.WithGateLogger(logger))
	rt.extractor = classifier.NewExtractor(client, logger)

	p, err := pipeline.New(pipeline.Deps{
		Profile:   prof,
		Gate:      rt.gate,
		Extractor: rt.extractor,
		Generator: newGenerator(cfg, logger),
		Compiler:  newRenderer(cfg, cfg.OutboxDir, logger),
		Composer:  compose.NewComposer(client, compose.WithLogger(logger)),
		Queue:     queue,
		MaxPages:  cfg.MaxPages,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	rt.pipeline = p
	ok = true
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

func newGenerator(cfg *config.Config, logger *slog.Logger) *resume.Generator {
	gen := resume.NewGenerator(logger)
	gen.TemplatePath = cfg.TemplatePath
	return gen
}

func newRenderer(cfg *config.Config, outDir string, logger *slog.Logger) *rendering.Renderer {
	r := rendering.NewRenderer(outDir, logger)
	if cfg.CompileTimeout > 0 {
		r.Timeout = cfg.CompileTimeout
	}
	return r
}

// readInput returns inline when set, else the contents of the file named by
// the first argument ("-" reads stdin).
func readInput(cmd *cobra.Command, inline string, args []string) (string, error) {
	if text := strings.TrimSpace(inline); text != "" {
		return text, nil
	}
	if len(args) == 0 {
		return "", errors.New("no input: pass a file path, or - to read stdin")
	}

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("input is empty")
	}
	return text, nil
}

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
