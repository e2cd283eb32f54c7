// Package site orchestrates full build cycles: prepare the output root,
// merge assets, read the content tree, write every rendered page. Every
// cycle is a full rebuild; there is no incremental mode.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/render"
)

// Trigger labels describing what started a build cycle.
const (
	TriggerManual   = "manual"
	TriggerFSEvent  = "fsevent"
	TriggerInterval = "interval"
)

// Outcome labels for finished build cycles.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// Stage names, in execution order.
const (
	StagePrepareOutput = "prepare-output"
	StageCopyAssets    = "copy-assets"
	StageReadTree      = "read-tree"
	StageWritePages    = "write-pages"
)

// Stage is a discrete unit of work in a build cycle.
type Stage func(ctx context.Context, bs *buildState) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Cycle must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage string, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// BuildResult captures one build cycle for logs, history and notifications.
type BuildResult struct {
	ID             uuid.UUID
	Trigger        string
	Start          time.Time
	Duration       time.Duration
	Pages          int
	Assets         int
	Outcome        string
	Warnings       []string
	StageDurations map[string]time.Duration
	Err            error
}

// ErrText returns the failure message, empty for clean cycles.
func (r *BuildResult) ErrText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// buildState carries mutable state across the stages of one cycle.
type buildState struct {
	pages  []*content.Page
	site   *render.SiteContext
	result *BuildResult
}

// Builder runs full build cycles. Construct once at startup and reuse;
// concurrent Build calls are not supported (watch mode serializes them).
type Builder struct {
	cfg       *config.Config
	reader    *content.Reader
	writer    *Writer
	recorder  metrics.Recorder
	logger    *slog.Logger
	generator string
	revision  string
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder injects a metrics recorder (NoopRecorder by default).
func WithRecorder(rec metrics.Recorder) Option {
	return func(b *Builder) { b.recorder = rec }
}

// WithLogger injects the builder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithBuildInfo sets the generator string and source revision exposed to
// templates via the site context.
func WithBuildInfo(generator, revision string) Option {
	return func(b *Builder) {
		b.generator = generator
		b.revision = revision
	}
}

// NewBuilder wires a Builder from its collaborators.
func NewBuilder(cfg *config.Config, reader *content.Reader, engine *render.Engine, opts ...Option) *Builder {
	b := &Builder{
		cfg:       cfg,
		reader:    reader,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
		generator: "sitegen",
	}
	for _, opt := range opts {
		opt(b)
	}
	b.writer = NewWriter(engine, b.logger)
	return b
}

// Build runs one full cycle. The first fatal error aborts the cycle and is
// returned; the BuildResult always carries the outcome, counts and stage
// timings, so callers can record failed cycles too.
func (b *Builder) Build(ctx context.Context, trigger string) (*BuildResult, error) {
	result := &BuildResult{
		ID:             uuid.New(),
		Trigger:        trigger,
		Start:          time.Now(),
		StageDurations: make(map[string]time.Duration),
	}
	logger := b.logger.With(logfields.BuildID(result.ID.String()), logfields.Trigger(trigger))
	logger.Info("starting build cycle",
		logfields.Dir(b.cfg.Content),
		slog.String("output", b.cfg.Output))

	bs := &buildState{result: result}
	err := b.runStages(ctx, bs, []stageSpec{
		{StagePrepareOutput, b.stagePrepareOutput},
		{StageCopyAssets, b.stageCopyAssets},
		{StageReadTree, b.stageReadTree},
		{StageWritePages, b.stageWritePages},
	})

	result.Duration = time.Since(result.Start)
	result.Err = err
	result.Outcome = outcomeFor(err)

	b.recorder.ObserveBuildDuration(result.Duration)
	b.recorder.IncBuildOutcome(result.Outcome)

	durationMS := float64(result.Duration) / float64(time.Millisecond)
	if err != nil {
		logger.Error("build cycle failed",
			logfields.Outcome(result.Outcome),
			logfields.DurationMS(durationMS),
			logfields.Error(err))
		return result, err
	}

	b.recorder.SetPagesRendered(result.Pages)
	b.recorder.SetAssetsCopied(result.Assets)
	logger.Info("build cycle finished",
		logfields.Outcome(result.Outcome),
		logfields.DurationMS(durationMS),
		logfields.Pages(result.Pages),
		logfields.Assets(result.Assets))
	return result, nil
}

type stageSpec struct {
	name string
	fn   Stage
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal error. Warnings are collected and the cycle continues; unknown
// errors are fatal by default, context cancellation maps to canceled.
func (b *Builder) runStages(ctx context.Context, bs *buildState, stages []stageSpec) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			b.recorder.IncStageResult(st.name, metrics.ResultCanceled)
			return newCanceledStageError(st.name, ctx.Err())
		default:
		}

		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		bs.result.StageDurations[st.name] = dur
		b.recorder.ObserveStageDuration(st.name, dur)

		if err == nil {
			b.recorder.IncStageResult(st.name, metrics.ResultSuccess)
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				se = newCanceledStageError(st.name, err)
			} else {
				se = newFatalStageError(st.name, err)
			}
		}
		b.recorder.IncStageResult(st.name, resultLabelFor(se.Kind))

		if se.Kind == StageErrorWarning {
			bs.result.Warnings = append(bs.result.Warnings, se.Error())
			b.logger.Warn("stage finished with warnings", logfields.Stage(st.name), logfields.Error(se.Err))
			continue
		}
		return se
	}
	return nil
}

func resultLabelFor(kind StageErrorKind) metrics.ResultLabel {
	switch kind {
	case StageErrorWarning:
		return metrics.ResultWarning
	case StageErrorCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

func outcomeFor(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var se *StageError
	if errors.As(err, &se) && se.Kind == StageErrorCanceled {
		return OutcomeCanceled
	}
	return OutcomeFailed
}

func (b *Builder) stagePrepareOutput(_ context.Context, _ *buildState) error {
	if err := os.MkdirAll(b.cfg.Output, 0755); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, b.cfg.Output, err)
	}
	return nil
}

func (b *Builder) stageCopyAssets(_ context.Context, bs *buildState) error {
	copied, missing, err := CopyAssets(b.cfg.Assets, b.cfg.Output, b.logger)
	bs.result.Assets = copied
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return newWarnStageError(StageCopyAssets, fmt.Errorf("%w: %s", ErrAssetMissing, strings.Join(missing, ", ")))
	}
	return nil
}

func (b *Builder) stageReadTree(_ context.Context, bs *buildState) error {
	pages, err := b.reader.ReadPages(b.cfg.Content)
	if err != nil {
		return err
	}
	bs.pages = pages
	bs.site = &render.SiteContext{
		Title:     b.cfg.Site.Title,
		BaseURL:   b.cfg.Site.BaseURL,
		Params:    b.cfg.Site.Params,
		Pages:     pages,
		Generator: b.generator,
		Revision:  b.revision,
	}
	return nil
}

func (b *Builder) stageWritePages(ctx context.Context, bs *buildState) error {
	written, err := b.writer.WritePages(ctx, bs.pages, bs.site, b.cfg.Output)
	bs.result.Pages = written
	if err != nil {
		return err
	}
	return nil
}
