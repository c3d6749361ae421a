package main

import "strings"

const (
	pressMarker   = "pressed"
	releaseMarker = "released"
)

// Transition is the key state change a cec-client line asks for
type Transition int

const (
	Press Transition = iota
	Release
)

func (t Transition) String() string {
	if t == Press {
		return "press"
	}
	return "release"
}

// ButtonRule links a remote button marker to either a RetroArch action
// (resolved through the user's bindings) or a fixed key name.
type ButtonRule struct {
	Marker string
	Action string
	Key    string
}

// actionRules are scanned first, in declaration order
var actionRules = []ButtonRule{
	{Marker: "yellow", Action: "input_player1_select"},
	{Marker: "blue", Action: "input_player1_start"},
	{Marker: "left", Action: "input_player1_left"},
	{Marker: "right", Action: "input_player1_right"},
	{Marker: "up", Action: "input_player1_up"},
	{Marker: "down", Action: "input_player1_down"},
	{Marker: "select", Action: "input_player1_a"},
	{Marker: "exit", Action: "input_player1_b"},
	{Marker: "backward", Action: "input_player1_a"},
	{Marker: "play", Action: "input_player1_b"},
	{Marker: "pause", Action: "input_player1_x"},
	{Marker: "forward", Action: "input_player1_y"},
}

// keyRules bypass retroarch.cfg and are only scanned when no action rule matched
var keyRules = []ButtonRule{
	{Marker: "red", Key: "f2"},
}

// TranslationResult is the outcome of translating one cec-client line.
// KeyCode, Transition, Button and Target are only meaningful when Matched.
type TranslationResult struct {
	Matched    bool
	KeyCode    int
	Transition Transition
	Button     string
	Target     string
}

// Translator turns cec-client output lines into key transitions.
// It holds only read-only tables and is safe for concurrent use.
type Translator struct {
	actionRules []ButtonRule
	keyRules    []ButtonRule
	catalog     *KeyCatalog
}

// NewTranslator creates a translator with the built-in remote button tables
func NewTranslator(catalog *KeyCatalog) *Translator {
	return NewTranslatorWithRules(catalog, actionRules, keyRules)
}

// NewTranslatorWithRules creates a translator with custom rule tables
func NewTranslatorWithRules(catalog *KeyCatalog, actions, keys []ButtonRule) *Translator {
	return &Translator{
		actionRules: actions,
		keyRules:    keys,
		catalog:     catalog,
	}
}

// Translate matches a line against the rule tables. The first rule whose
// marker occurs in the line decides the key; action rules win over key rules.
func (t *Translator) Translate(line string, bindings Bindings) TranslationResult {
	var transition Transition
	switch {
	case strings.Contains(line, pressMarker):
		transition = Press
	case strings.Contains(line, releaseMarker):
		transition = Release
	default:
		return TranslationResult{}
	}

	for _, rule := range t.actionRules {
		if !strings.Contains(line, rule.Marker) {
			continue
		}
		code, ok := bindings[rule.Action]
		if !ok {
			return TranslationResult{}
		}
		return TranslationResult{
			Matched:    true,
			KeyCode:    code,
			Transition: transition,
			Button:     rule.Marker,
			Target:     rule.Action,
		}
	}

	for _, rule := range t.keyRules {
		if !strings.Contains(line, rule.Marker) {
			continue
		}
		code, ok := t.catalog.Lookup(rule.Key)
		if !ok {
			return TranslationResult{}
		}
		return TranslationResult{
			Matched:    true,
			KeyCode:    code,
			Transition: transition,
			Button:     rule.Marker,
			Target:     rule.Key,
		}
	}

	return TranslationResult{}
}
