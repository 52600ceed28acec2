package ident

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when a caller-supplied table name fails
// validation. No SQL text is ever built from a name that did not pass New.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Keywords that are never valid table names even when they match the
// identifier grammar.
var reserved = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {},
	"table": {}, "from": {}, "where": {}, "drop": {},
	"grant": {}, "user": {}, "all": {}, "true": {}, "false": {},
}

// Ref is a validated table identifier. The zero value is unusable; a Ref is
// only obtained through New.
type Ref struct {
	name string
}

// New validates name against the identifier grammar and, when allowed is
// non-empty, against the allow-list. The allow-list is how callers restrict
// routines that run with elevated privileges to a trusted set of tables.
func New(name string, allowed []string) (Ref, error) {
	if !identPattern.MatchString(name) {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	if _, ok := reserved[name]; ok {
		return Ref{}, fmt.Errorf("%w: %q is a reserved word", ErrInvalidIdentifier, name)
	}
	if len(allowed) > 0 {
		found := false
		for _, a := range allowed {
			if a == name {
				found = true
				break
			}
		}
		if !found {
			return Ref{}, fmt.Errorf("%w: %q is not an allowed table", ErrInvalidIdentifier, name)
		}
	}
	return Ref{name: name}, nil
}

// Name returns the bare validated name.
func (r Ref) Name() string {
	return r.name
}

// Quote returns the double-quoted identifier form, with embedded quotes
// doubled. The grammar already forbids quotes; the escaping stays so Quote is
// safe even if the grammar is ever loosened.
func (r Ref) Quote() string {
	return `"` + strings.ReplaceAll(r.name, `"`, `""`) + `"`
}
