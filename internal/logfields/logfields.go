package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyProject  = "project"
	KeyName     = "name"
	KeyPath     = "path"
	KeyDir      = "dir"
	KeyURL      = "url"
	KeyBranch   = "branch"
	KeyVariant  = "variant"
	KeyExitCode = "exit_code"
	KeyBinding  = "binding"
	KeyError    = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Project(p string) slog.Attr { return slog.String(KeyProject, p) }
func Name(n string) slog.Attr    { return slog.String(KeyName, n) }
func Path(p string) slog.Attr    { return slog.String(KeyPath, p) }
func Dir(d string) slog.Attr     { return slog.String(KeyDir, d) }
func URL(u string) slog.Attr     { return slog.String(KeyURL, u) }
func Branch(b string) slog.Attr  { return slog.String(KeyBranch, b) }
func Variant(v string) slog.Attr { return slog.String(KeyVariant, v) }
func ExitCode(c int) slog.Attr   { return slog.Int(KeyExitCode, c) }
func Binding(b string) slog.Attr { return slog.String(KeyBinding, b) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
