package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyTrigger    = "trigger"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyDir        = "dir"
	KeyPages      = "pages"
	KeyAssets     = "assets"
	KeyOutcome    = "outcome"
	KeySubject    = "subject"
	KeyAddr       = "addr"
	KeyRevision   = "revision"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func Pages(n int) slog.Attr           { return slog.Int(KeyPages, n) }
func Assets(n int) slog.Attr          { return slog.Int(KeyAssets, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Revision(r string) slog.Attr     { return slog.String(KeyRevision, r) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
