package runner

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/adnsv/latexmlsuite/command"
)

// Recorder is a Runner that keeps every command instead of spawning a
// process. OnRun can simulate a tool's side effects; Unavailable and
// ExitCodes simulate missing or failing programs.
type Recorder struct {
	Unavailable map[string]bool
	ExitCodes   map[string]int
	OnRun       func(cmd command.Command) error

	mu       sync.Mutex
	commands []command.Command
}

func (r *Recorder) Run(_ context.Context, c command.Command) (Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()

	prog := c.Program()
	if r.Unavailable[prog] {
		return Result{ExitCode: -1}, errors.Wrap(ErrToolUnavailable, prog)
	}
	if r.OnRun != nil {
		if err := r.OnRun(c); err != nil {
			return Result{}, err
		}
	}
	return Result{ExitCode: r.ExitCodes[prog]}, nil
}

// Commands returns the recorded commands in execution order.
func (r *Recorder) Commands() []command.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]command.Command(nil), r.commands...)
}

// Transcript returns the recorded commands as space-joined lines.
func (r *Recorder) Transcript() []string {
	cmds := r.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

// Reset forgets the recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}
