package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitegen/internal/logfields"
	"git.home.luguber.info/inful/sitegen/internal/metrics"
	"git.home.luguber.info/inful/sitegen/internal/watch"
)

// WatchCmd implements the 'watch' command: build once, then rebuild on
// changes until interrupted.
type WatchCmd struct {
	Root string `help:"Directory to watch" default:"."`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	stack, err := newBuildStack(root.Config, g.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if stack.registry != nil {
		server := startMetricsServer(stack.cfg.Monitoring.Addr, stack.registry, g.Logger)
		defer shutdownMetricsServer(server, g.Logger)
	}

	coord, err := watch.NewCoordinator(w.Root, stack.cfg.Output, stack.runner,
		watch.WithLogger(g.Logger),
		watch.WithRecorder(stack.recorder),
		watch.WithDebounce(stack.cfg.Watch.DebounceDuration()),
		watch.WithInterval(stack.cfg.Watch.IntervalDuration()),
	)
	if err != nil {
		return err
	}
	defer coord.Stop()

	return coord.Run(ctx)
}

func startMetricsServer(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", logfields.Addr(addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logfields.Error(err))
		}
	}()
	return server
}

func shutdownMetricsServer(server *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", logfields.Error(err))
	}
}
