package main

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/micmonay/keybd_event"
)

const (
	BackendKeybd = "keybd"
	BackendEvdev = "evdev"
)

// InputSink receives key transitions. Each call emits one key event
// followed by a synchronization report.
type InputSink interface {
	SetKeyState(code int, pressed bool) error
	Close() error
}

// NewInputSink registers the virtual keyboard selected by the configuration
func NewInputSink(cfg *Config, catalog *KeyCatalog, log *LogManager) (InputSink, error) {
	retry := NewRetryManager(cfg.Input.RegisterAttempts, time.Duration(cfg.Input.RegisterDelay)*time.Second)

	var sink InputSink
	err := retry.Retry(func() error {
		var err error
		switch cfg.Input.Backend {
		case BackendEvdev:
			sink, err = newEvdevSink(cfg.Input.DeviceName, catalog)
		case BackendKeybd:
			sink, err = newKeybdSink(time.Duration(cfg.Input.SettleDelay) * time.Second)
		default:
			return fmt.Errorf("unknown input backend: %s", cfg.Input.Backend)
		}
		if err != nil {
			log.LogWarning("Input device registration failed", "backend", cfg.Input.Backend, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register input device: %w", err)
	}

	log.LogInfo("Input device registered", "backend", cfg.Input.Backend, "device", cfg.Input.DeviceName)
	return &lockedSink{sink: sink}, nil
}

// lockedSink serializes calls coming from the stdout and stderr readers
type lockedSink struct {
	mu   sync.Mutex
	sink InputSink
}

func (l *lockedSink) SetKeyState(code int, pressed bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.SetKeyState(code, pressed)
}

func (l *lockedSink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sink.Close()
}

// keybdSink emits keys through keybd_event's uinput device
type keybdSink struct {
	kb keybd_event.KeyBonding
}

func newKeybdSink(settle time.Duration) (*keybdSink, error) {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return nil, err
	}

	// Linux requires a delay before the new device receives events
	if settle > 0 {
		time.Sleep(settle)
	}
	return &keybdSink{kb: kb}, nil
}

func (k *keybdSink) SetKeyState(code int, pressed bool) error {
	k.kb.SetKeys(code)
	if pressed {
		return k.kb.Press()
	}
	return k.kb.Release()
}

func (k *keybdSink) Close() error {
	k.kb.Clear()
	return nil
}

// evdevSink writes EV_KEY and SYN_REPORT events to a dedicated uinput device
type evdevSink struct {
	dev *evdev.InputDevice
}

func newEvdevSink(name string, catalog *KeyCatalog) (*evdevSink, error) {
	codes := catalog.Codes()
	keys := make([]evdev.EvCode, len(codes))
	for i, code := range codes {
		keys[i] = evdev.EvCode(code)
	}

	dev, err := evdev.CreateDevice(name, evdev.InputID{
		BusType: 0x03,
		Vendor:  0x0001,
		Product: 0x0001,
		Version: 1,
	}, map[evdev.EvType][]evdev.EvCode{
		evdev.EV_KEY: keys,
	})
	if err != nil {
		return nil, err
	}
	return &evdevSink{dev: dev}, nil
}

func (e *evdevSink) SetKeyState(code int, pressed bool) error {
	var value int32
	if pressed {
		value = 1
	}
	now := syscall.NsecToTimeval(time.Now().UnixNano())

	if err := e.dev.WriteOne(&evdev.InputEvent{
		Time:  now,
		Type:  evdev.EV_KEY,
		Code:  evdev.EvCode(code),
		Value: value,
	}); err != nil {
		return fmt.Errorf("failed to write key event: %w", err)
	}
	if err := e.dev.WriteOne(&evdev.InputEvent{
		Time: now,
		Type: evdev.EV_SYN,
		Code: evdev.SYN_REPORT,
	}); err != nil {
		return fmt.Errorf("failed to write sync event: %w", err)
	}
	return nil
}

func (e *evdevSink) Close() error {
	return e.dev.Close()
}
