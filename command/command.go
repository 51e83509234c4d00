// Package command builds the argument lists for every external tool the
// suite drives.
package command

import "strings"

// Command is one external invocation: program name followed by arguments.
// Dir, when set, is the working directory for the process; otherwise the
// runner's default directory applies.
type Command struct {
	Args []string
	Dir  string
}

// Program is the first token of the command.
func (c Command) Program() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

func (c Command) String() string {
	return strings.Join(c.Args, " ")
}
