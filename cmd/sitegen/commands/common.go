package commands

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/gitinfo"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/markdown"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/notify"
	"git.home.luguber.info/inful/sitegen/internal/render"
	"git.home.luguber.info/inful/sitegen/internal/site"
	"git.home.luguber.info/inful/sitegen/internal/state"
	"git.home.luguber.info/inful/sitegen/internal/version"
)

// Global carries state shared by all subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition with global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitegen.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run one full build of the site"`
	Watch   WatchCmd   `cmd:"" help:"Build the site, then rebuild on changes until interrupted"`
	Serve   ServeCmd   `cmd:"" help:"Serve the generated site over HTTP"`
	Init    InitCmd    `cmd:"" help:"Scaffold a configuration file and example project"`
	History HistoryCmd `cmd:"" help:"List recent build records"`
}

// AfterApply runs after flag parsing; sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	if env := os.Getenv("SITEGEN_LOG_LEVEL"); env != "" {
		level = parseLogLevel(env, level)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel maps a level name onto its slog level, keeping the fallback
// for unknown names.
func parseLogLevel(raw string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// buildStack is the fully wired build pipeline: configuration, builder, and
// the optional history store, notifier and metrics registry.
type buildStack struct {
	cfg      *config.Config
	runner   *recordingRunner
	recorder metrics.Recorder
	registry *prometheus.Registry // non-nil when monitoring is configured
	logger   *slog.Logger
}

// newBuildStack loads configuration and wires every component the build and
// watch commands share.
func newBuildStack(configPath string, logger *slog.Logger) (*buildStack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var registry *prometheus.Registry
	if cfg.Monitoring != nil {
		registry = prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}

	conv, err := markdown.NewConverter(cfg.Markdown.Extensions)
	if err != nil {
		return nil, err
	}
	engine, err := render.NewEngine(cfg.Templates.Dir, cfg.Templates.Base)
	if err != nil {
		return nil, err
	}

	builder := site.NewBuilder(cfg, content.NewReader(conv, logger), engine,
		site.WithLogger(logger),
		site.WithRecorder(recorder),
		site.WithBuildInfo(generatorString(), resolveRevision(logger)),
	)

	runner := &recordingRunner{builder: builder, siteTitle: cfg.Site.Title, logger: logger}
	if cfg.State != nil {
		store, err := state.Open(cfg.State.Path)
		if err != nil {
			return nil, err
		}
		runner.store = store
	}
	if cfg.Notify != nil {
		pub, err := notify.NewPublisher(cfg.Notify.URL, cfg.Notify.Subject, logger)
		if err != nil {
			runner.close()
			return nil, err
		}
		runner.notifier = pub
	}

	return &buildStack{
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		registry: registry,
		logger:   logger,
	}, nil
}

// Close releases the stack's long-lived resources.
func (s *buildStack) Close() {
	s.runner.close()
}

// recordingRunner wraps the builder with the per-cycle side channels:
// history rows and NATS events. Both are best effort and never fail a
// build.
type recordingRunner struct {
	builder   *site.Builder
	store     *state.Store
	notifier  *notify.Publisher
	siteTitle string
	logger    *slog.Logger
}

func (r *recordingRunner) Build(ctx context.Context, trigger string) (*site.BuildResult, error) {
	result, err := r.builder.Build(ctx, trigger)
	if result != nil {
		r.record(ctx, result)
	}
	return result, err
}

func (r *recordingRunner) record(ctx context.Context, result *site.BuildResult) {
	if r.store != nil {
		// Canceled cycles still get their history row.
		if err := r.store.Record(context.WithoutCancel(ctx), state.FromBuildResult(result)); err != nil {
			r.logger.Warn("failed to record build history", logfields.Error(err))
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Publish(notify.EventFromResult(result, r.siteTitle)); err != nil {
			r.logger.Warn("failed to publish build event", logfields.Error(err))
		}
	}
}

func (r *recordingRunner) close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("failed to close history store", logfields.Error(err))
		}
	}
	if r.notifier != nil {
		r.notifier.Close()
	}
}

func generatorString() string {
	return "sitegen " + version.Version
}

// resolveRevision stamps templates with the source revision when the
// project lives in a git repository. Best effort; most projects built in CI
// from a tarball have none.
func resolveRevision(logger *slog.Logger) string {
	info, err := gitinfo.Resolve(".")
	if err != nil {
		logger.Debug("no source revision available", logfields.Error(err))
		return ""
	}
	return info.Describe()
}
