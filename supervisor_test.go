package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineRecorder collects lines delivered by one stream reader
type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *lineRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// sliceSource yields its commands without delay
type sliceSource struct {
	commands []string
}

func (s *sliceSource) Next(ctx context.Context) (string, bool, error) {
	if len(s.commands) == 0 {
		return "", false, nil
	}
	command := s.commands[0]
	s.commands = s.commands[1:]
	return command, true, nil
}

// blockingSource never yields a command
type blockingSource struct{}

func (blockingSource) Next(ctx context.Context) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

type failingSource struct{}

func (failingSource) Next(ctx context.Context) (string, bool, error) {
	return "", false, errors.New("source broken")
}

func newTestSupervisor(grace time.Duration) *Supervisor {
	return NewSupervisor(NewDiscardLogManager(), grace)
}

func runWithTimeout(t *testing.T, fn func() (int, error)) (int, error) {
	t.Helper()
	type outcome struct {
		code int
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		code, err := fn()
		done <- outcome{code, err}
	}()
	select {
	case o := <-done:
		return o.code, o.err
	case <-time.After(10 * time.Second):
		t.Fatal("supervisor did not return")
		return 0, nil
	}
}

func TestSupervisorRoutesStreamsAndCommands(t *testing.T) {
	var stdout, stderr lineRecorder
	script := `read a; echo "out:$a"; read b; echo "err:$b" >&2; exit 3`

	code, err := runWithTimeout(t, func() (int, error) {
		return newTestSupervisor(time.Second).Run(context.Background(), "sh", []string{"-c", script},
			stdout.add, stderr.add, &sliceSource{commands: []string{"on 0", "as"}})
	})

	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, []string{"out:on 0"}, stdout.get())
	assert.Equal(t, []string{"err:as"}, stderr.get())
}

func TestSupervisorPreservesLineOrder(t *testing.T) {
	var stdout, stderr lineRecorder
	script := `for i in 1 2 3 4 5; do echo "line $i"; echo "warn $i" >&2; done; printf 'last'`

	code, err := runWithTimeout(t, func() (int, error) {
		return newTestSupervisor(time.Second).Run(context.Background(), "sh", []string{"-c", script},
			stdout.add, stderr.add, nil)
	})

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"line 1", "line 2", "line 3", "line 4", "line 5", "last"}, stdout.get())
	assert.Equal(t, []string{"warn 1", "warn 2", "warn 3", "warn 4", "warn 5"}, stderr.get())
}

func TestSupervisorReturnsWhenProcessExitsBeforeCommands(t *testing.T) {
	var stdout lineRecorder
	commands := DefaultStartupScript(clockwork.NewFakeClock(), time.Hour, time.Hour)

	code, err := runWithTimeout(t, func() (int, error) {
		return newTestSupervisor(time.Second).Run(context.Background(), "sh", []string{"-c", "echo hi"},
			stdout.add, nil, commands)
	})

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"hi"}, stdout.get())
	assert.Equal(t, 2, commands.Remaining())
}

func TestSupervisorCancellationIsGraceful(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout lineRecorder
	onOut := func(line string) {
		stdout.add(line)
		if line == "ready" {
			cancel()
		}
	}
	script := `trap 'echo stopping; exit 0' INT; echo ready; while :; do sleep 0.05; done`

	_, err := runWithTimeout(t, func() (int, error) {
		return newTestSupervisor(5*time.Second).Run(ctx, "sh", []string{"-c", script},
			onOut, nil, blockingSource{})
	})

	require.NoError(t, err)
	assert.Equal(t, "ready", stdout.get()[0])
}

func TestSupervisorKillsProcessIgnoringInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onOut := func(line string) {
		if line == "ready" {
			cancel()
		}
	}
	script := `trap '' INT; echo ready; while :; do sleep 0.05; done`

	code, err := runWithTimeout(t, func() (int, error) {
		return newTestSupervisor(100*time.Millisecond).Run(ctx, "sh", []string{"-c", script},
			onOut, nil, blockingSource{})
	})

	require.NoError(t, err)
	assert.Equal(t, -1, code)
}

func TestSupervisorLaunchError(t *testing.T) {
	code, err := newTestSupervisor(time.Second).Run(context.Background(), "/nonexistent/cec-client",
		[]string{"RPI"}, nil, nil, nil)

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "/nonexistent/cec-client RPI", launchErr.Command)
	assert.Equal(t, -1, code)
}

func TestSupervisorCommandSourceFailure(t *testing.T) {
	script := `trap 'exit 0' INT; while :; do sleep 0.05; done`

	_, err := runWithTimeout(t, func() (int, error) {
		return newTestSupervisor(2*time.Second).Run(context.Background(), "sh", []string{"-c", script},
			nil, nil, failingSource{})
	})

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "stdin", streamErr.Stream)
}

func TestReadLines(t *testing.T) {
	var lines lineRecorder

	err := readLines("stdout", strings.NewReader("first\r\nsecond\n\nthird"), lines.add)

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "", "third"}, lines.get())
}

func TestReadLinesReportsStreamError(t *testing.T) {
	boom := errors.New("boom")

	err := readLines("stderr", iotest.ErrReader(boom), func(string) {})

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, "stderr", streamErr.Stream)
	assert.ErrorIs(t, err, boom)
}

func TestWriteCommandsStopsOnClosedPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	require.NoError(t, r.Close())
	defer w.Close()

	err = newTestSupervisor(time.Second).writeCommands(context.Background(), w, &sliceSource{commands: []string{"on 0"}})
	assert.NoError(t, err)
}

func TestWriteCommandsAppendsNewline(t *testing.T) {
	var buf strings.Builder

	err := newTestSupervisor(time.Second).writeCommands(context.Background(), &buf, &sliceSource{commands: []string{"on 0", "as"}})

	require.NoError(t, err)
	assert.Equal(t, "on 0\nas\n", buf.String())
}
