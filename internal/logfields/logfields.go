package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyClass      = "class"
	KeyPath       = "path"
	KeyRevisioned = "revisioned"
	KeyKey        = "key"
	KeyFiles      = "files"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyResult     = "result"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr        { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Class(c string) slog.Attr         { return slog.String(KeyClass, c) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Revisioned(p string) slog.Attr    { return slog.String(KeyRevisioned, p) }
func Key(k string) slog.Attr           { return slog.String(KeyKey, k) }
func Files(n int) slog.Attr            { return slog.Int(KeyFiles, n) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Result(r string) slog.Attr        { return slog.String(KeyResult, r) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
