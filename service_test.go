package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyEvent struct {
	code    int
	pressed bool
}

// recordingSink stores every key transition it receives
type recordingSink struct {
	mu     sync.Mutex
	events []keyEvent
	err    error
	closed bool
}

func (r *recordingSink) SetKeyState(code int, pressed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, keyEvent{code: code, pressed: pressed})
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) recorded() []keyEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]keyEvent(nil), r.events...)
}

func newTestService(t *testing.T, sink InputSink, script string) *service {
	t.Helper()
	config := DefaultConfig()
	config.CECClient.Command = "sh"
	config.CECClient.Args = []string{"-c", script}

	logManager := NewDiscardLogManager()
	svc := NewService(
		config,
		NewTranslator(DefaultKeyCatalog()),
		testBindings(),
		sink,
		NewSupervisor(logManager, time.Second),
		nil,
		logManager,
		NewStatusManager(logManager),
	)
	return svc.(*service)
}

func TestHandleLineSendsKeyTransitions(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(t, sink, "")

	svc.HandleLine("DEBUG:   [  5678]\tkey pressed: select (0)")
	svc.HandleLine("TRAFFIC: [  5679]\t>> 01:8b:00")
	svc.HandleLine("DEBUG:   [  5800]\tkey released: select (0) D:122ms")
	svc.HandleLine("NOTICE:  [  5801]\tconnection opened")

	assert.Equal(t, []keyEvent{{30, true}, {30, false}}, sink.recorded())

	status := svc.Status()
	assert.Equal(t, 1, status.Presses)
	assert.Equal(t, 1, status.Releases)
	assert.Equal(t, "select", status.LastButton)
	assert.Equal(t, "input_player1_a", status.LastKey)
}

func TestHandleLineSinkFailureIsRecorded(t *testing.T) {
	sink := &recordingSink{err: errors.New("uinput gone")}
	svc := newTestService(t, sink, "")

	svc.HandleLine("key pressed: up (1)")

	status := svc.Status()
	assert.Equal(t, 0, status.Presses)
	assert.Equal(t, "uinput gone", status.LastError)
}

func TestHandleErrLine(t *testing.T) {
	svc := newTestService(t, &recordingSink{}, "")

	svc.HandleErrLine("ERROR:   [  100]\tcould not open a connection")

	status := svc.Status()
	assert.Equal(t, 1, status.ErrorLines)
	assert.Equal(t, "ERROR:   [  100]\tcould not open a connection", status.LastError)
}

func TestServiceRun(t *testing.T) {
	sink := &recordingSink{}
	script := `echo "key pressed: up (1)"; echo "key released: up (1)"; echo "oops" >&2; echo "key pressed: F2 (red) (72)"; exit 2`
	svc := newTestService(t, sink, script)

	code, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Equal(t, []keyEvent{{103, true}, {103, false}, {60, true}}, sink.recorded())

	status := svc.Status()
	assert.Equal(t, "Exited", status.State)
	assert.Equal(t, 1, status.ErrorLines)
	assert.NotZero(t, status.Pid)
}

func TestServiceRunSendsStartupCommands(t *testing.T) {
	sink := &recordingSink{}
	script := `read a; read b; echo "key pressed: $a"; echo "key released: $b"`
	svc := newTestService(t, sink, script)
	svc.commands = NewCommandScript(clockwork.NewRealClock(),
		ScheduledCommand{Command: "up"},
		ScheduledCommand{Command: "down"},
	)

	code, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []keyEvent{{103, true}, {108, false}}, sink.recorded())
}

func TestServiceRunLaunchFailure(t *testing.T) {
	svc := newTestService(t, &recordingSink{}, "")
	svc.config.CECClient.Command = "/nonexistent/cec-client"

	_, err := svc.Run(context.Background())

	var launchErr *LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "Failed", svc.Status().State)
}

func TestLockedSinkSerializesCalls(t *testing.T) {
	inner := &recordingSink{}
	sink := &lockedSink{sink: inner}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(code int) {
			defer wg.Done()
			_ = sink.SetKeyState(code, true)
		}(i)
	}
	wg.Wait()

	assert.Len(t, inner.recorded(), 20)
	require.NoError(t, sink.Close())
	assert.True(t, inner.closed)
}
