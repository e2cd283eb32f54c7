package commands

import (
	"context"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitegen/internal/site"
)

// BuildCmd implements the 'build' command: one full build cycle.
type BuildCmd struct{}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	stack, err := newBuildStack(root.Config, g.Logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, err = stack.runner.Build(ctx, site.TriggerManual)
	return err
}
