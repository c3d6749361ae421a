package main

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Service runs the CEC to keyboard bridge until cec-client exits
type Service interface {
	Run(ctx context.Context) (int, error)
	Status() BridgeStatus
}

type service struct {
	config     *Config
	translator *Translator
	bindings   Bindings
	sink       InputSink
	supervisor *Supervisor
	commands   CommandSource
	log        *LogManager
	status     *StatusManager
}

// NewService creates the bridge. bindings must already be fully resolved.
func NewService(config *Config, translator *Translator, bindings Bindings, sink InputSink, supervisor *Supervisor, commands CommandSource, logManager *LogManager, status *StatusManager) Service {
	return &service{
		config:     config,
		translator: translator,
		bindings:   bindings,
		sink:       sink,
		supervisor: supervisor,
		commands:   commands,
		log:        logManager,
		status:     status,
	}
}

func (s *service) Status() BridgeStatus {
	return s.status.GetStatus()
}

func (s *service) Run(ctx context.Context) (int, error) {
	runLog := s.log.With("run", uuid.NewString()[:8])
	runLog.LogInfo("Running cec-client", "command", s.config.CECClient.Command)

	s.status.UpdateState("Starting")
	s.supervisor.OnStart(s.status.SetProcess)

	code, err := s.supervisor.Run(ctx, s.config.CECClient.Command, s.config.CECClient.Args,
		s.HandleLine, s.HandleErrLine, s.loggedCommands(runLog))

	switch {
	case err != nil:
		s.status.UpdateState("Failed")
		s.status.SetLastError(err.Error())
		runLog.LogError("Bridge stopped", err, "exit_code", code)
	case ctx.Err() != nil:
		s.status.UpdateState("Interrupted")
		runLog.LogInfo("Exited.", "exit_code", code)
	default:
		s.status.UpdateState("Exited")
		runLog.LogInfo("cec-client exited", "exit_code", code)
	}
	s.status.LogSummary()
	return code, err
}

// HandleLine translates one cec-client stdout line into a key transition
func (s *service) HandleLine(line string) {
	if strings.Contains(line, pressMarker) || strings.Contains(line, releaseMarker) {
		s.log.LogDebug(line)
	}

	result := s.translator.Translate(line, s.bindings)
	if !result.Matched {
		return
	}

	s.log.LogKeyEvent(result.Button, result.Target, result.Transition)
	if err := s.sink.SetKeyState(result.KeyCode, result.Transition == Press); err != nil {
		s.log.LogError("Failed to send key", err, "button", result.Button, "key", result.Target)
		s.status.SetLastError(err.Error())
		return
	}
	s.status.RecordKey(result)
}

// HandleErrLine reports one cec-client stderr line
func (s *service) HandleErrLine(line string) {
	s.log.LogError(line, nil, "stream", "stderr")
	s.status.RecordErrorLine(line)
}

func (s *service) loggedCommands(log *LogManager) CommandSource {
	if s.commands == nil {
		return nil
	}
	return &loggingCommandSource{source: s.commands, log: log}
}

// loggingCommandSource logs what each startup command is for before it is sent
type loggingCommandSource struct {
	source CommandSource
	log    *LogManager
}

func (l *loggingCommandSource) Next(ctx context.Context) (string, bool, error) {
	command, ok, err := l.source.Next(ctx)
	if ok {
		if script, isScript := l.source.(*CommandScript); isScript {
			if description := script.Describe(command); description != "" {
				l.log.LogInfo(description, "command", command)
			}
		}
	}
	return command, ok, err
}
