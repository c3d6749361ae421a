package main

import (
	"sort"

	evdev "github.com/holoplot/go-evdev"
)

// KeyCatalog maps RetroArch keyboard key names to Linux input key codes.
// It is built once at startup and never mutated.
type KeyCatalog struct {
	keyMap map[string]int
}

// NewKeyCatalog creates a catalog from the given name to code table
func NewKeyCatalog(keys map[string]int) *KeyCatalog {
	kc := &KeyCatalog{
		keyMap: make(map[string]int, len(keys)),
	}
	for name, code := range keys {
		kc.keyMap[name] = code
	}
	return kc
}

// DefaultKeyCatalog returns the key names RetroArch writes to retroarch.cfg
// for keyboard bindings that this bridge can emit.
func DefaultKeyCatalog() *KeyCatalog {
	return NewKeyCatalog(map[string]int{
		// Navigation
		"left":     int(evdev.KEY_LEFT),
		"right":    int(evdev.KEY_RIGHT),
		"up":       int(evdev.KEY_UP),
		"down":     int(evdev.KEY_DOWN),
		"enter":    int(evdev.KEY_ENTER),
		"kp_enter": int(evdev.KEY_KPENTER),
		"tab":      int(evdev.KEY_TAB),
		"insert":   int(evdev.KEY_INSERT),
		"del":      int(evdev.KEY_DELETE),
		"end":      int(evdev.KEY_END),
		"home":     int(evdev.KEY_HOME),
		"pageup":   int(evdev.KEY_PAGEUP),
		"pagedown": int(evdev.KEY_PAGEDOWN),

		// Modifiers
		"rshift": int(evdev.KEY_RIGHTSHIFT),
		"shift":  int(evdev.KEY_LEFTSHIFT),
		"rctrl":  int(evdev.KEY_RIGHTCTRL),
		"ctrl":   int(evdev.KEY_LEFTCTRL),
		"ralt":   int(evdev.KEY_RIGHTALT),
		"alt":    int(evdev.KEY_LEFTALT),

		"space":      int(evdev.KEY_SPACE),
		"escape":     int(evdev.KEY_ESC),
		"backspace":  int(evdev.KEY_BACKSPACE),
		"capslock":   int(evdev.KEY_CAPSLOCK),
		"numlock":    int(evdev.KEY_NUMLOCK),
		"scrolllock": int(evdev.KEY_SCROLLLOCK),
		"pause":      int(evdev.KEY_PAUSE),

		// Function keys
		"f1":  int(evdev.KEY_F1),
		"f2":  int(evdev.KEY_F2),
		"f3":  int(evdev.KEY_F3),
		"f4":  int(evdev.KEY_F4),
		"f5":  int(evdev.KEY_F5),
		"f6":  int(evdev.KEY_F6),
		"f7":  int(evdev.KEY_F7),
		"f8":  int(evdev.KEY_F8),
		"f9":  int(evdev.KEY_F9),
		"f10": int(evdev.KEY_F10),
		"f11": int(evdev.KEY_F11),
		"f12": int(evdev.KEY_F12),

		// Number row
		"num1": int(evdev.KEY_1),
		"num2": int(evdev.KEY_2),
		"num3": int(evdev.KEY_3),
		"num4": int(evdev.KEY_4),
		"num5": int(evdev.KEY_5),
		"num6": int(evdev.KEY_6),
		"num7": int(evdev.KEY_7),
		"num8": int(evdev.KEY_8),
		"num9": int(evdev.KEY_9),
		"num0": int(evdev.KEY_0),

		// Keypad
		"keypad1":   int(evdev.KEY_KP1),
		"keypad2":   int(evdev.KEY_KP2),
		"keypad3":   int(evdev.KEY_KP3),
		"keypad4":   int(evdev.KEY_KP4),
		"keypad5":   int(evdev.KEY_KP5),
		"keypad6":   int(evdev.KEY_KP6),
		"keypad7":   int(evdev.KEY_KP7),
		"keypad8":   int(evdev.KEY_KP8),
		"keypad9":   int(evdev.KEY_KP9),
		"keypad0":   int(evdev.KEY_KP0),
		"kp_minus":  int(evdev.KEY_KPMINUS),
		"kp_plus":   int(evdev.KEY_KPPLUS),
		"kp_period": int(evdev.KEY_KPDOT),
		"kp_equals": int(evdev.KEY_KPEQUAL),

		// Punctuation
		"period":    int(evdev.KEY_DOT),
		"backquote": int(evdev.KEY_GRAVE),
		"comma":     int(evdev.KEY_COMMA),
		"minus":     int(evdev.KEY_MINUS),
		"slash":     int(evdev.KEY_SLASH),
		"semicolon": int(evdev.KEY_SEMICOLON),
		"equals":    int(evdev.KEY_EQUAL),
		"backslash": int(evdev.KEY_BACKSLASH),

		// Letters
		"a": int(evdev.KEY_A),
		"b": int(evdev.KEY_B),
		"c": int(evdev.KEY_C),
		"d": int(evdev.KEY_D),
		"e": int(evdev.KEY_E),
		"f": int(evdev.KEY_F),
		"g": int(evdev.KEY_G),
		"h": int(evdev.KEY_H),
		"i": int(evdev.KEY_I),
		"j": int(evdev.KEY_J),
		"k": int(evdev.KEY_K),
		"l": int(evdev.KEY_L),
		"m": int(evdev.KEY_M),
		"n": int(evdev.KEY_N),
		"o": int(evdev.KEY_O),
		"p": int(evdev.KEY_P),
		"q": int(evdev.KEY_Q),
		"r": int(evdev.KEY_R),
		"s": int(evdev.KEY_S),
		"t": int(evdev.KEY_T),
		"u": int(evdev.KEY_U),
		"v": int(evdev.KEY_V),
		"w": int(evdev.KEY_W),
		"x": int(evdev.KEY_X),
		"y": int(evdev.KEY_Y),
		"z": int(evdev.KEY_Z),
	})
}

// Lookup returns the key code for an exact, case-sensitive key name
func (kc *KeyCatalog) Lookup(name string) (int, bool) {
	code, ok := kc.keyMap[name]
	return code, ok
}

// Names returns all supported key names in sorted order
func (kc *KeyCatalog) Names() []string {
	names := make([]string, 0, len(kc.keyMap))
	for name := range kc.keyMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Codes returns every distinct key code in ascending order
func (kc *KeyCatalog) Codes() []int {
	seen := make(map[int]bool, len(kc.keyMap))
	codes := make([]int, 0, len(kc.keyMap))
	for _, code := range kc.keyMap {
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Len returns the number of supported key names
func (kc *KeyCatalog) Len() int {
	return len(kc.keyMap)
}

// NameOf returns the first key name, in sorted order, bound to code
func (kc *KeyCatalog) NameOf(code int) string {
	for _, name := range kc.Names() {
		if kc.keyMap[name] == code {
			return name
		}
	}
	return ""
}
