package model

import "strings"

// Scope is the ordered set of permission tokens requested or granted for a
// session. The wire form is space separated (RFC 6749 §3.3).
type Scope []string

// ParseScope splits a space separated scope string, dropping empty tokens
// and duplicates while preserving first-seen order.
func ParseScope(s string) Scope {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make(Scope, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// String devuelve la forma wire (separado por espacios).
func (s Scope) String() string {
	return strings.Join(s, " ")
}

// Contains reporta si el scope incluye el token dado.
func (s Scope) Contains(token string) bool {
	for _, t := range s {
		if t == token {
			return true
		}
	}
	return false
}

// Clone returns an independent copy. Callers that store a Scope must clone it
// so later slice mutations by the caller cannot leak into persisted state.
func (s Scope) Clone() Scope {
	if s == nil {
		return nil
	}
	out := make(Scope, len(s))
	copy(out, s)
	return out
}
