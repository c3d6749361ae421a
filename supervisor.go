package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// LineFunc receives one line of subprocess output without its line terminator
type LineFunc func(line string)

// LaunchError reports that the subprocess could not be started
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// StreamError reports an I/O failure on one of the subprocess streams
type StreamError struct {
	Stream string
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream failed: %v", e.Stream, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Supervisor runs a subprocess while feeding its stdin and reading its
// stdout and stderr concurrently.
type Supervisor struct {
	log   *LogManager
	grace time.Duration

	// onStart is called with the pid once the process is running
	onStart func(pid int)
}

// NewSupervisor creates a supervisor. grace is how long an interrupted
// process gets to exit before it is killed.
func NewSupervisor(log *LogManager, grace time.Duration) *Supervisor {
	return &Supervisor{
		log:   log,
		grace: grace,
	}
}

// OnStart registers a callback invoked with the pid after launch
func (s *Supervisor) OnStart(fn func(pid int)) {
	s.onStart = fn
}

// Run starts the command and returns once the process has exited and all
// three streams are finished. Cancelling ctx interrupts the process and is
// not reported as an error; the process exit code is returned either way.
func (s *Supervisor) Run(ctx context.Context, name string, args []string, onOut, onErr LineFunc, commands CommandSource) (int, error) {
	cmdLine := strings.Join(append([]string{name}, args...), " ")
	cmd := exec.Command(name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return -1, &LaunchError{Command: cmdLine, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, &LaunchError{Command: cmdLine, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, &LaunchError{Command: cmdLine, Err: err}
	}

	s.log.LogInfo("Starting subprocess", "command", cmdLine)
	if err := cmd.Start(); err != nil {
		return -1, &LaunchError{Command: cmdLine, Err: err}
	}
	s.log.LogDebug("Subprocess started", "pid", cmd.Process.Pid)
	if s.onStart != nil {
		s.onStart(cmd.Process.Pid)
	}

	g, gctx := errgroup.WithContext(ctx)

	// A stream failure stops the process; streams ending on their own do not.
	aborted := make(chan struct{})
	var abortOnce sync.Once
	abort := func(err error) error {
		if err != nil {
			abortOnce.Do(func() { close(aborted) })
		}
		return err
	}

	exited := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.interruptOnCancel(ctx, aborted, exited, cmd.Process)
	}()

	// The writer has nothing left to do once both readers are done.
	writerCtx, stopWriter := context.WithCancel(gctx)
	defer stopWriter()

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		readers.Wait()
		stopWriter()
	}()

	g.Go(func() error {
		return abort(s.writeCommands(writerCtx, stdin, commands))
	})
	g.Go(func() error {
		defer readers.Done()
		return abort(readLines("stdout", stdout, onOut))
	})
	g.Go(func() error {
		defer readers.Done()
		return abort(readLines("stderr", stderr, onErr))
	})

	streamErr := g.Wait()
	waitErr := cmd.Wait()
	close(exited)
	<-stopped

	code := cmd.ProcessState.ExitCode()
	s.log.LogInfo("Subprocess exited", "command", cmdLine, "exit_code", code)

	if streamErr != nil {
		return code, streamErr
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return code, fmt.Errorf("failed to wait for %s: %w", cmdLine, waitErr)
	}
	return code, nil
}

// writeCommands drains the command source into stdin. stdin is left open
// once the source is exhausted.
func (s *Supervisor) writeCommands(ctx context.Context, stdin io.Writer, commands CommandSource) error {
	if commands == nil {
		return nil
	}
	for {
		command, ok, err := commands.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &StreamError{Stream: "stdin", Err: err}
		}
		if !ok {
			s.log.LogDebug("Command source exhausted")
			return nil
		}

		s.log.LogInfo("Sending command through stdin", "command", command)
		if _, err := io.WriteString(stdin, command+"\n"); err != nil {
			if errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) {
				s.log.LogDebug("Subprocess stdin closed", "command", command)
				return nil
			}
			return &StreamError{Stream: "stdin", Err: err}
		}
	}
}

// interruptOnCancel sends SIGINT when ctx ends or the run is aborted before
// the process has been reaped, then SIGKILL if it is still running after the
// grace period.
func (s *Supervisor) interruptOnCancel(ctx context.Context, aborted, exited <-chan struct{}, proc *os.Process) {
	select {
	case <-exited:
		return
	case <-aborted:
	case <-ctx.Done():
	}

	s.log.LogDebug("Interrupting subprocess", "pid", proc.Pid)
	if err := proc.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.log.LogWarning("Failed to interrupt subprocess", "pid", proc.Pid, "error", err)
	}

	timer := time.NewTimer(s.grace)
	defer timer.Stop()
	select {
	case <-exited:
	case <-timer.C:
		s.log.LogWarning("Subprocess did not exit in time, killing it", "pid", proc.Pid, "grace", s.grace)
		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.log.LogError("Failed to kill subprocess", err, "pid", proc.Pid)
		}
	}
}

// readLines calls fn for every line of r until EOF. A final line without a
// terminator is still delivered.
func readLines(stream string, r io.Reader, fn LineFunc) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" && fn != nil {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &StreamError{Stream: stream, Err: err}
		}
	}
}
