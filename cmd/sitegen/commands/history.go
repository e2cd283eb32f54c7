package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/state"
)

// HistoryCmd lists recent build records from the state database.
type HistoryCmd struct {
	Limit int `help:"Maximum number of records to show" default:"20"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.State == nil {
		return fmt.Errorf("build history is not configured; add a 'state:' block to %s", root.Config)
	}

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no builds recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tBUILD\tTRIGGER\tOUTCOME\tDURATION\tPAGES\tASSETS\tNOTES")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			rec.StartedAt.Format(time.DateTime),
			shortID(rec.BuildID),
			rec.Trigger,
			rec.Outcome,
			rec.Duration.Round(time.Millisecond),
			rec.Pages,
			rec.Assets,
			recordNotes(rec),
		)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// recordNotes summarizes what went wrong, if anything.
func recordNotes(rec state.Record) string {
	if rec.Error != "" {
		return rec.Error
	}
	if len(rec.Warnings) > 0 {
		return fmt.Sprintf("%d warning(s)", len(rec.Warnings))
	}
	return ""
}
