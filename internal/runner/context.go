package runner

import "strings"

// Context decides how a command line is wrapped before execution. A context
// knows how to run an arbitrary command with its required environment
// already in effect.
type Context interface {
	// Wrap transforms argv into the argv actually executed.
	Wrap(argv []string) []string
}

// Direct runs the command as-is in the current shell context.
type Direct struct{}

func (Direct) Wrap(argv []string) []string { return argv }

// Activated runs the command inside the activated build environment: the
// activation script is sourced, then the command is chained after it in the
// same shell invocation.
type Activated struct {
	// Script is the path to the environment activation script.
	Script string
}

func (a Activated) Wrap(argv []string) []string {
	return []string{"cmd.exe", "/C", "call " + a.Script + " && " + strings.Join(argv, " ")}
}
