// Package segmentation prepares volumes for an external batch segmentation
// program and runs that program as a subprocess, streaming its output.
package segmentation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// Event is one item of a run's output stream. Every stream ends with exactly
// one event whose Done field is set; Err is nil on a zero exit status.
type Event struct {
	Line string
	Done bool
	Err  error
}

// ProcessError reports a segmentation run that exited with a nonzero status.
type ProcessError struct {
	ExitCode int

	// Output holds the last lines the process wrote.
	Output []string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("segmentation exited with status %d", e.ExitCode)
}

// CommandBuilder creates the command for a run. It exists so tests can
// substitute the program.
type CommandBuilder interface {
	BuildCommand(ctx context.Context, name string, args ...string) *exec.Cmd
}

type execBuilder struct{}

func (execBuilder) BuildCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}

const (
	// keepLines bounds the output retained for ProcessError.
	keepLines = 200

	maxLineSize = 1 << 20
)

// Runner invokes a segmentation program with a list of input directories
// appended to its arguments.
type Runner struct {
	Command string
	Args    []string

	// WaitDelay bounds how long a run waits for output after the process
	// exits or is cancelled.
	WaitDelay time.Duration

	builder CommandBuilder
}

func NewRunner(command string, args ...string) *Runner {
	return &Runner{
		Command:   command,
		Args:      args,
		WaitDelay: 5 * time.Second,
		builder:   execBuilder{},
	}
}

// Start launches the program on dirs and returns its combined stdout and
// stderr one line at a time. The channel is closed after the Done event.
// Cancelling ctx kills the process; lines produced after that may be dropped
// and the Done event carries ctx.Err(). Callers must drain the channel.
func (r *Runner) Start(ctx context.Context, dirs []string) (<-chan Event, error) {
	if len(dirs) == 0 {
		return nil, ErrNoInputs
	}

	b := r.builder
	if b == nil {
		b = execBuilder{}
	}
	args := append(append([]string(nil), r.Args...), dirs...)
	cmd := b.BuildCommand(ctx, r.Command, args...)
	cmd.WaitDelay = r.WaitDelay

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", r.Command, err)
	}

	waited := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waited <- err
	}()

	events := make(chan Event, 64)
	go func() {
		defer close(events)

		var tail []string
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			line := scanner.Text()
			tail = append(tail, line)
			if len(tail) > keepLines {
				tail = tail[1:]
			}
			select {
			case events <- Event{Line: line}:
			case <-ctx.Done():
			}
		}
		// Keep the writer side from blocking if scanning stopped early.
		io.Copy(io.Discard, pr)

		err := <-waited
		events <- Event{Done: true, Err: r.exitError(ctx, err, tail)}
	}()
	return events, nil
}

func (r *Runner) exitError(ctx context.Context, err error, tail []string) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{ExitCode: exitErr.ExitCode(), Output: tail}
	}
	return fmt.Errorf("run %s: %w", r.Command, err)
}

// Run starts the program and calls onLine for every output line until it
// exits. onLine may be nil.
func (r *Runner) Run(ctx context.Context, dirs []string, onLine func(string)) error {
	events, err := r.Start(ctx, dirs)
	if err != nil {
		return err
	}
	var result error
	for ev := range events {
		if ev.Done {
			result = ev.Err
			continue
		}
		if onLine != nil {
			onLine(ev.Line)
		}
	}
	return result
}

// String is the command line without input directories.
func (r *Runner) String() string {
	return strings.Join(append([]string{r.Command}, r.Args...), " ")
}
