// Package logfields holds the canonical structured log attribute names.
package logfields

import (
	"log/slog"
	"strings"
)

const (
	KeyRunID    = "run_id"
	KeyStage    = "stage"
	KeyMode     = "mode"
	KeyPath     = "path"
	KeyTarget   = "target"
	KeyCommand  = "command"
	KeyDir      = "dir"
	KeyExitCode = "exit_code"
	KeyResult   = "result"
	KeyError    = "error"
)

func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Target(p string) slog.Attr       { return slog.String(KeyTarget, p) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Result(r string) slog.Attr       { return slog.String(KeyResult, r) }
func Command(args []string) slog.Attr { return slog.String(KeyCommand, strings.Join(args, " ")) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
