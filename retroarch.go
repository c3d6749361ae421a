package main

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// inputBindingPrefix selects the retroarch.cfg entries that describe player input
const inputBindingPrefix = "input_player"

var retroarchLineRegex = regexp.MustCompile(`(?m)^\s*(\w+)\s*=\s*"?(.+?)"?$`)

// Bindings maps a RetroArch input action (e.g. input_player1_a) to a key code
type Bindings map[string]int

// UnresolvedKeyError reports a configured key name missing from the KeyCatalog
type UnresolvedKeyError struct {
	Action string
	Value  string
}

func (e UnresolvedKeyError) Error() string {
	return fmt.Sprintf("unsupported key %q for %s", e.Value, e.Action)
}

// ResolutionError aggregates every binding that could not be resolved
type ResolutionError struct {
	Unresolved []UnresolvedKeyError
	Supported  []string
}

func (e *ResolutionError) Error() string {
	values := make([]string, len(e.Unresolved))
	for i, u := range e.Unresolved {
		values[i] = fmt.Sprintf("%q (%s)", u.Value, u.Action)
	}
	return fmt.Sprintf("the %d key(s) %s in your retroarch.cfg are unsupported; supported keys are: %s",
		len(e.Unresolved), strings.Join(values, ", "), strings.Join(e.Supported, ", "))
}

// Unwrap exposes each unresolved binding to errors.As
func (e *ResolutionError) Unwrap() []error {
	errs := make([]error, len(e.Unresolved))
	for i, u := range e.Unresolved {
		errs[i] = u
	}
	return errs
}

// ParseBindings extracts the input_player* entries of a retroarch.cfg text.
// Lines that do not look like key = value are skipped; the last duplicate wins.
func ParseBindings(raw string) map[string]string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	entries := make(map[string]string)
	for _, match := range retroarchLineRegex.FindAllStringSubmatch(raw, -1) {
		key, value := match[1], match[2]
		if !strings.HasPrefix(key, inputBindingPrefix) {
			continue
		}
		entries[key] = value
	}
	return entries
}

// ResolveBindings looks every entry value up in the catalog. Failures are
// collected rather than returned early so they can all be reported at once.
func ResolveBindings(entries map[string]string, catalog *KeyCatalog) (Bindings, []UnresolvedKeyError) {
	actions := make([]string, 0, len(entries))
	for action := range entries {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	bindings := make(Bindings, len(entries))
	var unresolved []UnresolvedKeyError
	for _, action := range actions {
		value := entries[action]
		code, ok := catalog.Lookup(value)
		if !ok {
			unresolved = append(unresolved, UnresolvedKeyError{Action: action, Value: value})
			continue
		}
		bindings[action] = code
	}
	return bindings, unresolved
}

// ResolveConfig parses and resolves a retroarch.cfg text. A partial mapping
// is never returned: any unresolved value fails the whole resolution.
func ResolveConfig(raw string, catalog *KeyCatalog) (Bindings, error) {
	bindings, unresolved := ResolveBindings(ParseBindings(raw), catalog)
	if len(unresolved) > 0 {
		return nil, &ResolutionError{
			Unresolved: unresolved,
			Supported:  catalog.Names(),
		}
	}
	return bindings, nil
}

// LoadBindings reads retroarch.cfg from disk and resolves its input bindings
func LoadBindings(path string, catalog *KeyCatalog) (Bindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read retroarch config: %w", err)
	}
	return ResolveConfig(string(data), catalog)
}
