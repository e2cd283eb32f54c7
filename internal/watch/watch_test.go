package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/site"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records build invocations. Every build start is signaled on
// started; when release is non-nil the build blocks until a value arrives,
// letting tests hold a build in flight.
type fakeRunner struct {
	mu       sync.Mutex
	triggers []string
	started  chan string
	release  chan struct{}
	failOn   map[int]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{started: make(chan string, 64)}
}

func (f *fakeRunner) Build(_ context.Context, trigger string) (*site.BuildResult, error) {
	f.mu.Lock()
	f.triggers = append(f.triggers, trigger)
	n := len(f.triggers)
	f.mu.Unlock()

	f.started <- trigger
	if f.release != nil {
		<-f.release
	}
	if err := f.failOn[n]; err != nil {
		return &site.BuildResult{Trigger: trigger, Outcome: site.OutcomeFailed, Err: err}, err
	}
	return &site.BuildResult{Trigger: trigger, Outcome: site.OutcomeSuccess}, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.triggers)
}

func awaitBuild(t *testing.T, f *fakeRunner) string {
	t.Helper()
	select {
	case trigger := <-f.started:
		return trigger
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a build")
		return ""
	}
}

func assertNoBuild(t *testing.T, f *fakeRunner, within time.Duration) {
	t.Helper()
	select {
	case trigger := <-f.started:
		t.Fatalf("unexpected build with trigger %s", trigger)
	case <-time.After(within):
	}
}

func newTestCoordinator(t *testing.T, runner BuildRunner, opts ...Option) *Coordinator {
	t.Helper()
	root := t.TempDir()
	opts = append([]Option{WithLogger(discardLogger()), WithDebounce(50 * time.Millisecond)}, opts...)
	c, err := NewCoordinator(root, filepath.Join(root, "public"), runner, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func TestRun_PerformsInitialBuild(t *testing.T) {
	runner := newFakeRunner()
	c := newTestCoordinator(t, runner)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	c.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRun_BurstOfTriggers_CoalescesIntoOneRebuild(t *testing.T) {
	runner := newFakeRunner()
	c := newTestCoordinator(t, runner, WithDebounce(80*time.Millisecond))
	go func() { _ = c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	time.Sleep(150 * time.Millisecond) // let the startup window lapse

	for range 5 {
		c.enqueue(site.TriggerFSEvent)
	}

	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner))
	assertNoBuild(t, runner, 250*time.Millisecond)
	require.Equal(t, 2, runner.count())
}

func TestRun_TriggerInsideWindowDuringBuild_IsSwallowed(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	c := newTestCoordinator(t, runner, WithDebounce(300*time.Millisecond))
	go func() { _ = c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	runner.release <- struct{}{}
	time.Sleep(400 * time.Millisecond)

	c.enqueue(site.TriggerFSEvent)
	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner))
	c.enqueue(site.TriggerFSEvent) // lands well inside the 300ms window
	runner.release <- struct{}{}

	assertNoBuild(t, runner, 600*time.Millisecond)
	require.Equal(t, 2, runner.count())
}

func TestRun_TriggerAfterWindowDuringBuild_FiresFollowUp(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	c := newTestCoordinator(t, runner, WithDebounce(50*time.Millisecond))
	go func() { _ = c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	runner.release <- struct{}{}
	time.Sleep(150 * time.Millisecond)

	c.enqueue(site.TriggerFSEvent)
	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner))
	// Past the window but the build is still running: this one must park
	// and fire exactly one follow-up.
	time.Sleep(150 * time.Millisecond)
	c.enqueue(site.TriggerFSEvent)
	runner.release <- struct{}{}

	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner))
	runner.release <- struct{}{}
	require.Equal(t, 3, runner.count())
}

func TestRun_RebuildFailure_KeepsWatching(t *testing.T) {
	runner := newFakeRunner()
	runner.failOn = map[int]error{2: errors.New("render exploded")}
	c := newTestCoordinator(t, runner, WithDebounce(30*time.Millisecond))
	go func() { _ = c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	time.Sleep(100 * time.Millisecond)

	c.enqueue(site.TriggerFSEvent)
	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner)) // fails
	time.Sleep(100 * time.Millisecond)

	c.enqueue(site.TriggerFSEvent)
	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner)) // still alive
	require.Equal(t, 3, runner.count())
}

func TestRun_ContextCancellation_UnblocksRun(t *testing.T) {
	runner := newFakeRunner()
	c := newTestCoordinator(t, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	awaitBuild(t, runner)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestStop_Idempotent(t *testing.T) {
	runner := newFakeRunner()
	c := newTestCoordinator(t, runner)
	c.Stop()
	c.Stop()
}

func TestRun_FileChange_TriggersRebuild(t *testing.T) {
	runner := newFakeRunner()
	root := t.TempDir()
	contentDir := filepath.Join(root, "content")
	require.NoError(t, os.MkdirAll(contentDir, 0755))

	c, err := NewCoordinator(root, filepath.Join(root, "public"), runner,
		WithLogger(discardLogger()), WithDebounce(50*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	go func() { _ = c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	time.Sleep(150 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(contentDir, "new.md"), []byte("# hi"), 0644))
	require.Equal(t, site.TriggerFSEvent, awaitBuild(t, runner))
}

func TestRun_OutputWrites_DoNotRetrigger(t *testing.T) {
	runner := newFakeRunner()
	root := t.TempDir()
	outputDir := filepath.Join(root, "public")

	c, err := NewCoordinator(root, outputDir, runner,
		WithLogger(discardLogger()), WithDebounce(30*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	go func() { _ = c.Run(context.Background()) }()

	require.Equal(t, site.TriggerManual, awaitBuild(t, runner))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.MkdirAll(outputDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "index.html"), []byte("<html>"), 0644))
	assertNoBuild(t, runner, 300*time.Millisecond)
}

func TestRun_IntervalTrigger_FiresRebuilds(t *testing.T) {
	runner := newFakeRunner()
	c := newTestCoordinator(t, runner,
		WithDebounce(10*time.Millisecond),
		WithInterval(50*time.Millisecond))
	go func() { _ = c.Run(context.Background()) }()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case trigger := <-runner.started:
			if trigger == site.TriggerInterval {
				return
			}
		case <-deadline:
			t.Fatal("no interval rebuild observed")
		}
	}
}

func TestAddDirsRecursive_SkipsHiddenAndOutputDirs(t *testing.T) {
	runner := newFakeRunner()
	root := t.TempDir()
	for _, rel := range []string{"content/blog", ".git/objects", "public/assets"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0755))
	}

	c, err := NewCoordinator(root, filepath.Join(root, "public"), runner, WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	c.addDirsRecursive(c.root)

	watched := make(map[string]bool)
	for _, dir := range c.watcher.WatchList() {
		watched[dir] = true
	}
	require.True(t, watched[c.root])
	require.True(t, watched[filepath.Join(c.root, "content")])
	require.True(t, watched[filepath.Join(c.root, "content", "blog")])
	require.False(t, watched[filepath.Join(c.root, ".git")])
	require.False(t, watched[filepath.Join(c.root, "public")])
	require.False(t, watched[filepath.Join(c.root, "public", "assets")])
}

func TestShouldIgnoreEvent(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"content/index.md", false},
		{"templates/base.html", false},
		{"content/.index.md.swp", true},
		{"content/index.md~", true},
		{"content/index.swx", true},
		{"content/#index.md#", true},
		{"content/.DS_Store", true},
		{"content/Thumbs.db", true},
		{"content/.hidden/visible.md", false},
	}
	for _, tc := range cases {
		if got := shouldIgnoreEvent(tc.path); got != tc.want {
			t.Errorf("shouldIgnoreEvent(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestWithinDir(t *testing.T) {
	cases := []struct {
		dir, path string
		want      bool
	}{
		{"/site/public", "/site/public", true},
		{"/site/public", "/site/public/index.html", true},
		{"/site/public", "/site/public/assets/style.css", true},
		{"/site/public", "/site/content/index.md", false},
		{"/site/public", "/site/publicextra/file", false},
		{"/site/public", "/site", false},
	}
	for _, tc := range cases {
		if got := withinDir(tc.dir, tc.path); got != tc.want {
			t.Errorf("withinDir(%q, %q) = %v, want %v", tc.dir, tc.path, got, tc.want)
		}
	}
}

func TestScheduler_FiresTaskAtInterval(t *testing.T) {
	fired := make(chan struct{}, 8)
	s, err := NewScheduler(30*time.Millisecond, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	s.Start()
	defer func() { _ = s.Stop() }()

	for range 2 {
		select {
		case <-fired:
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler task did not fire")
		}
	}
}
