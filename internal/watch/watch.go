// Package watch rebuilds the site when source files change. A filesystem
// subscription feeds a single-slot trigger queue; one goroutine consumes it
// and runs builds serially, so rebuilds can never overlap. Bursts of events
// coalesce into one rebuild through a quiet window after each trigger.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/site"
)

const defaultDebounce = 2 * time.Second

// BuildRunner runs one full build cycle. The coordinator is the only caller
// in watch mode, so implementations need not be safe for concurrent builds.
type BuildRunner interface {
	Build(ctx context.Context, trigger string) (*site.BuildResult, error)
}

// rebuildTrigger is one queued rebuild request. The arrival time decides
// whether a parked trigger falls inside the previous debounce window.
type rebuildTrigger struct {
	reason string
	at     time.Time
}

// Coordinator watches the project tree and serializes rebuilds.
type Coordinator struct {
	root      string
	outputAbs string
	runner    BuildRunner
	watcher   *fsnotify.Watcher
	scheduler *Scheduler
	triggerCh chan rebuildTrigger
	stopCh    chan struct{}
	stopOnce  sync.Once
	debounce  time.Duration
	interval  time.Duration
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger injects the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithRecorder injects a metrics recorder for trigger counting.
func WithRecorder(rec metrics.Recorder) Option {
	return func(c *Coordinator) { c.recorder = rec }
}

// WithDebounce sets the quiet window measured from each consumed trigger.
// Non-positive values keep the default of two seconds.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithInterval enables periodic rebuild triggers at the given period. Zero
// disables them.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// NewCoordinator builds a Coordinator watching the tree rooted at root.
// Events under outputDir are ignored so the coordinator's own writes never
// retrigger it.
func NewCoordinator(root, outputDir string, runner BuildRunner, opts ...Option) (*Coordinator, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}
	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	absOutput, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	c := &Coordinator{
		root:      absRoot,
		outputAbs: absOutput,
		runner:    runner,
		triggerCh: make(chan rebuildTrigger, 1),
		stopCh:    make(chan struct{}),
		debounce:  defaultDebounce,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	c.watcher = watcher

	if c.interval > 0 {
		sched, err := NewScheduler(c.interval, func() { c.enqueue(site.TriggerInterval) })
		if err != nil {
			_ = watcher.Close()
			return nil, err
		}
		c.scheduler = sched
	}
	return c, nil
}

// Run builds once, then blocks serving triggers until ctx is canceled or
// Stop is called. Rebuild failures are logged and watching continues; Run
// itself only fails on subscription problems.
func (c *Coordinator) Run(ctx context.Context) error {
	c.addDirsRecursive(c.root)
	go c.forwardEvents()
	if c.scheduler != nil {
		c.scheduler.Start()
		c.logger.Info("periodic rebuilds enabled", slog.Duration("interval", c.interval))
	}

	c.enqueue(site.TriggerManual)
	c.logger.Info("watching for changes",
		logfields.Dir(c.root),
		slog.Duration("debounce", c.debounce))

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return nil
		case <-c.stopCh:
			return nil
		case t := <-c.triggerCh:
			windowEnd := t.at.Add(c.debounce)
			c.runBuild(ctx, t.reason)
			c.sleepUntil(ctx, windowEnd)
			c.discardStale(windowEnd)
		}
	}
}

// Stop closes the filesystem watcher and unblocks Run. Safe to call more
// than once and safe while a rebuild is in flight; the rebuild finishes
// first since the run loop is the sole builder.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.watcher.Close(); err != nil {
			c.logger.Warn("closing watcher", logfields.Error(err))
		}
		if c.scheduler != nil {
			if err := c.scheduler.Stop(); err != nil {
				c.logger.Warn("stopping scheduler", logfields.Error(err))
			}
		}
	})
}

func (c *Coordinator) runBuild(ctx context.Context, reason string) {
	if _, err := c.runner.Build(ctx, reason); err != nil {
		// The builder already logged cycle details; note that watching
		// continues regardless.
		c.logger.Warn("rebuild failed, watching continues",
			logfields.Trigger(reason),
			logfields.Error(err))
	}
}

// enqueue puts a trigger in the single slot. When the slot is occupied the
// stale trigger is evicted so the newest arrival time wins.
func (c *Coordinator) enqueue(reason string) {
	c.recorder.IncWatchTrigger(reason)
	t := rebuildTrigger{reason: reason, at: time.Now()}
	for {
		select {
		case c.triggerCh <- t:
			return
		default:
		}
		select {
		case <-c.triggerCh:
		default:
		}
	}
}

// sleepUntil waits out the remainder of the debounce window, returning early
// on shutdown.
func (c *Coordinator) sleepUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-c.stopCh:
	case <-timer.C:
	}
}

// discardStale drops a parked trigger that arrived inside the debounce
// window. One that arrived after the window is put back so the run loop
// fires a follow-up rebuild.
func (c *Coordinator) discardStale(windowEnd time.Time) {
	select {
	case t := <-c.triggerCh:
		if t.at.After(windowEnd) {
			select {
			case c.triggerCh <- t:
			default:
			}
			return
		}
		c.logger.Debug("swallowed trigger inside debounce window", logfields.Trigger(t.reason))
	default:
	}
}

// forwardEvents filters filesystem events into the trigger queue.
func (c *Coordinator) forwardEvents() {
	for {
		select {
		case <-c.stopCh:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (c *Coordinator) handleEvent(ev fsnotify.Event) {
	if c.ignorePath(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			c.addDirsRecursive(ev.Name)
		}
	}
	c.logger.Debug("file change detected",
		logfields.Path(ev.Name),
		slog.String("op", ev.Op.String()))
	c.enqueue(site.TriggerFSEvent)
}

func (c *Coordinator) ignorePath(path string) bool {
	if shouldIgnoreEvent(path) {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	return withinDir(c.outputAbs, abs)
}

// addDirsRecursive subscribes dir and every descendant directory, skipping
// hidden directories and the output subtree. Per-directory failures are
// logged and skipped; a vanished directory is not an error.
func (c *Coordinator) addDirsRecursive(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(filepath.Base(path), ".") {
			return fs.SkipDir
		}
		if withinDir(c.outputAbs, path) {
			return fs.SkipDir
		}
		if err := c.watcher.Add(path); err != nil {
			c.logger.Warn("watch add failed", logfields.Dir(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent reports whether a path is noise: hidden files, editor
// temp/swap files, OS metadata files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) {
		return true
	}
	return base == "Thumbs.db"
}

// withinDir reports whether path sits inside dir (or is dir itself). Both
// must be absolute and cleaned.
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
