package tracker

import (
	"fmt"
	"sort"
	"strings"
)

// KeySet is the set of key codes the key hook reports on. A KeySet is
// immutable once built; the session swaps whole sets atomically so the hook
// callback always observes a complete set, never a partial one.
type KeySet struct {
	codes map[uint32]struct{}
}

// NewKeySet builds a set from raw key codes.
func NewKeySet(codes ...uint32) *KeySet {
	set := &KeySet{codes: make(map[uint32]struct{}, len(codes))}
	for _, c := range codes {
		set.codes[c] = struct{}{}
	}
	return set
}

// ParseKeys maps key identifier strings to a KeySet using the platform
// lookup. Unrecognized identifiers are dropped silently; duplicates collapse
// into one entry.
func ParseKeys(tokens []string) *KeySet {
	set := &KeySet{codes: make(map[uint32]struct{}, len(tokens))}
	for _, tok := range tokens {
		if code, ok := KeyCodeFromString(tok); ok {
			set.codes[code] = struct{}{}
		}
	}
	return set
}

// Contains reports membership. KeySets are never mutated after construction,
// so this is safe from any goroutine.
func (s *KeySet) Contains(code uint32) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of distinct tracked codes.
func (s *KeySet) Len() int {
	return len(s.codes)
}

// Names returns the display names of all tracked codes, sorted.
func (s *KeySet) Names() []string {
	names := make([]string, 0, len(s.codes))
	for code := range s.codes {
		names = append(names, KeyName(code))
	}
	sort.Strings(names)
	return names
}

// KeyCodeFromString converts one key identifier (like "Q", "4" or "CTRL") to
// the platform key code. ok is false for identifiers outside the fixed
// lookup: a single alphanumeric character or one of CTRL, SHIFT, ALT.
func KeyCodeFromString(s string) (uint32, bool) {
	upper := strings.ToUpper(s)

	switch upper {
	case "CTRL":
		return keyCodeControl, true
	case "SHIFT":
		return keyCodeShift, true
	case "ALT":
		return keyCodeAlt, true
	}

	if len(upper) == 1 {
		c := upper[0]
		if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') {
			return keyCodeForChar(c), true
		}
	}

	return 0, false
}

// KeyName converts a key code back to its display name, for console echo and
// status output. Codes outside the lookup render as hex.
func KeyName(code uint32) string {
	switch code {
	case keyCodeControl:
		return "CTRL"
	case keyCodeShift:
		return "SHIFT"
	case keyCodeAlt:
		return "ALT"
	}
	if c, ok := charForKeyCode(code); ok {
		return string(c)
	}
	return fmt.Sprintf("0x%02X", code)
}

// DefaultTrackedKeys is the tracked set used until setkeys replaces it:
// Q, W, E, R, 1, 2, 3, 4 and CTRL.
func DefaultTrackedKeys() *KeySet {
	return ParseKeys([]string{"Q", "W", "E", "R", "1", "2", "3", "4", "CTRL"})
}
