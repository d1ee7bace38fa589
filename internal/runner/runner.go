// Package runner executes external commands. It is the single exec path for
// the whole build: every invocation is logged at debug level before it runs,
// and a nonzero exit is an error unless the caller explicitly opts out.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Options controls a single command invocation.
type Options struct {
	// Dir is the working directory for the command; empty means inherit.
	Dir string
	// Env is the child environment; nil means inherit the process env.
	Env []string
	// Capture collects stdout/stderr into the Result instead of streaming
	// them to the parent's stdio.
	Capture bool
	// NoCheck tolerates a nonzero exit status: the Result carries the exit
	// code and no error is returned.
	NoCheck bool
}

// Result is the completed-process outcome.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Func is the signature of Run, for callers that take the runner as a
// dependency.
type Func func(ctx context.Context, argv []string, opts Options) (Result, error)

// Run executes argv and returns the completed-process result. Failure to
// start the command is always an error, regardless of NoCheck.
func Run(ctx context.Context, argv []string, opts Options) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("runner: empty command")
	}
	logInvocation(argv, opts)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env

	var stdout, stderr bytes.Buffer
	if opts.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if opts.NoCheck {
			return res, nil
		}
		return res, fmt.Errorf("command %s exited with code %d", argv[0], res.ExitCode)
	}

	res.ExitCode = -1
	return res, fmt.Errorf("command %s failed to start: %w", argv[0], err)
}

// logInvocation records a reconstructable form of the call. The environment
// is a very large list, so it is omitted from the log.
func logInvocation(argv []string, opts Options) {
	slog.Debug("Invoking command",
		slog.String("argv", strings.Join(argv, " ")),
		slog.String("dir", opts.Dir),
		slog.Bool("capture", opts.Capture),
		slog.Bool("no_check", opts.NoCheck),
	)
}
