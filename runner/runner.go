// Package runner executes the commands built for the pipeline stages.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/adnsv/latexmlsuite/command"
	"github.com/adnsv/latexmlsuite/logfields"
)

// ErrToolUnavailable marks a command whose program could not be launched,
// typically because it is not installed. Callers treat it as recoverable.
var ErrToolUnavailable = errors.New("tool unavailable")

// Result describes a finished process. The exit code is reported, not judged.
type Result struct {
	ExitCode int
}

// Runner executes one command to completion.
type Runner interface {
	Run(ctx context.Context, cmd command.Command) (Result, error)
}

// Exec runs commands as child processes and streams their combined output,
// line by line, to Out while they run.
type Exec struct {
	Out    io.Writer
	Dir    string // working directory for commands without their own Dir
	Echo   string // no-op marker program; such commands are not echoed twice
	Logger *slog.Logger
}

func NewExec(out io.Writer, dir, echo string) *Exec {
	return &Exec{Out: out, Dir: dir, Echo: echo, Logger: slog.Default()}
}

func (e *Exec) Run(ctx context.Context, c command.Command) (Result, error) {
	if len(c.Args) == 0 {
		return Result{}, errors.New("empty command")
	}
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}
	logger := e.logger()
	if c.Program() != e.Echo {
		fmt.Fprintln(e.Out, c.String())
	}

	x := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	x.Dir = e.dir(c)
	x.Env = os.Environ()
	out, err := x.StdoutPipe()
	if err != nil {
		return Result{}, errors.Wrap(err, "stdout pipe")
	}
	x.Stderr = x.Stdout

	if err := x.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{ExitCode: -1}, ctxErr
		}
		logger.Warn("failed to launch command",
			logfields.Command(c.Args),
			logfields.Dir(x.Dir),
			logfields.Error(err))
		return Result{ExitCode: -1}, errors.Wrapf(ErrToolUnavailable, "%s: %v", c.Program(), err)
	}

	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		fmt.Fprintln(e.Out, strings.TrimRight(sc.Text(), " \t\r"))
	}
	if err := sc.Err(); err != nil {
		logger.Warn("command output truncated", logfields.Command(c.Args), logfields.Error(err))
		_, _ = io.Copy(io.Discard, out)
	}

	err = x.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1}, errors.Wrapf(ctxErr, "%s interrupted", c.Program())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		logger.Debug("command exited", logfields.Command(c.Args), logfields.ExitCode(code))
		return Result{ExitCode: code}, nil
	}
	if err != nil {
		return Result{ExitCode: -1}, errors.Wrapf(err, "wait for %s", c.Program())
	}
	return Result{}, nil
}

func (e *Exec) dir(c command.Command) string {
	switch {
	case c.Dir == "":
		return e.Dir
	case filepath.IsAbs(c.Dir) || e.Dir == "":
		return filepath.FromSlash(c.Dir)
	default:
		return filepath.Join(e.Dir, filepath.FromSlash(c.Dir))
	}
}

func (e *Exec) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
