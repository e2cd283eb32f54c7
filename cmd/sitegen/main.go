package main

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegen/cmd/sitegen/commands"
	"git.home.luguber.info/inful/sitegen/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("sitegen"),
		kong.Description("Markdown static site generator with watch mode."),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("sitegen %s (%s, built %s)", version.Version, version.GitCommit, version.BuildTime),
		},
	)

	g := &commands.Global{Logger: slog.Default()}
	err := ctx.Run(g, &cli)
	ctx.FatalIfErrorf(err)
}
