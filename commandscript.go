package main

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// CommandPowerOn turns on the TV (logical address 0)
	CommandPowerOn = "on 0"
	// CommandActiveSource makes this device the active source
	CommandActiveSource = "as"
)

// CommandSource yields commands for the subprocess stdin. ok is false once
// the source is exhausted.
type CommandSource interface {
	Next(ctx context.Context) (command string, ok bool, err error)
}

// ScheduledCommand is sent Delay after the previous command of the script
type ScheduledCommand struct {
	Delay       time.Duration
	Command     string
	Description string
}

// CommandScript is a lazy, single-pass sequence of delayed commands
type CommandScript struct {
	clock clockwork.Clock
	steps []ScheduledCommand
	next  int
	mu    sync.Mutex
}

// NewCommandScript creates a script that runs the steps in order on the clock
func NewCommandScript(clock clockwork.Clock, steps ...ScheduledCommand) *CommandScript {
	return &CommandScript{
		clock: clock,
		steps: steps,
	}
}

// DefaultStartupScript powers on the TV and then claims the active source
func DefaultStartupScript(clock clockwork.Clock, powerOnDelay, activeSourceDelay time.Duration) *CommandScript {
	return NewCommandScript(clock,
		ScheduledCommand{Delay: powerOnDelay, Command: CommandPowerOn, Description: "Turning on TV"},
		ScheduledCommand{Delay: activeSourceDelay, Command: CommandActiveSource, Description: "Setting ourself as active source"},
	)
}

// Next waits for the delay of the next step and returns its command.
// A cancelled wait does not consume the step.
func (cs *CommandScript) Next(ctx context.Context) (string, bool, error) {
	step, ok := cs.peek()
	if !ok {
		return "", false, nil
	}

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-cs.clock.After(step.Delay):
	}

	cs.mu.Lock()
	cs.next++
	cs.mu.Unlock()
	return step.Command, true, nil
}

// Remaining returns how many commands are still to be sent
func (cs *CommandScript) Remaining() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.steps) - cs.next
}

// Describe returns the description of a command in this script
func (cs *CommandScript) Describe(command string) string {
	for _, step := range cs.steps {
		if step.Command == command {
			return step.Description
		}
	}
	return ""
}

func (cs *CommandScript) peek() (ScheduledCommand, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.next >= len(cs.steps) {
		return ScheduledCommand{}, false
	}
	return cs.steps[cs.next], true
}
