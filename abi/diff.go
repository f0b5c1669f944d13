package abi

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Changed ChangeKind = "changed"
)

type Change struct {
	Kind   ChangeKind `json:"kind"`
	Symbol Kind       `json:"symbol"`
	Name   string     `json:"name"`
	Old    string     `json:"old,omitempty"`
	New    string     `json:"new,omitempty"`
}

// Breaking reports whether code built against the old declarations may fail
// against the new ones. Only additions are compatible.
func (c Change) Breaking() bool {
	return c.Kind != Added
}

func (c Change) String() string {
	switch c.Kind {
	case Added:
		return fmt.Sprintf("+ %s %s: %s", c.Symbol, c.Name, c.New)
	case Removed:
		return fmt.Sprintf("- %s %s: %s", c.Symbol, c.Name, c.Old)
	}
	return fmt.Sprintf("~ %s %s: %s -> %s", c.Symbol, c.Name, c.Old, c.New)
}

type key struct {
	kind Kind
	name string
}

func index(t *Table) map[key]Symbol {
	m := make(map[key]Symbol, len(t.symbols))
	for _, s := range t.symbols {
		m[key{s.Kind, s.Name}] = s
	}
	return m
}

// Diff compares two tables. Changes are ordered by symbol kind, then name.
func Diff(old, new *Table) []Change {
	before, after := index(old), index(new)

	var changes []Change
	for k, o := range before {
		n, ok := after[k]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: Removed, Symbol: k.kind, Name: k.name, Old: o.Detail})
		case o.Detail != n.Detail:
			changes = append(changes, Change{Kind: Changed, Symbol: k.kind, Name: k.name, Old: o.Detail, New: n.Detail})
		}
	}
	for k, n := range after {
		if _, ok := before[k]; !ok {
			changes = append(changes, Change{Kind: Added, Symbol: k.kind, Name: k.name, New: n.Detail})
		}
	}

	sort.Slice(changes, func(i, j int) bool {
		if changes[i].Symbol != changes[j].Symbol {
			return changes[i].Symbol < changes[j].Symbol
		}
		return changes[i].Name < changes[j].Name
	})
	return changes
}

// Compatible reports whether none of changes is breaking.
func Compatible(changes []Change) bool {
	for _, c := range changes {
		if c.Breaking() {
			return false
		}
	}
	return true
}

// Fingerprint is the hex BLAKE2b-256 digest of the table's canonical
// symbols. It does not depend on declaration order or source positions.
func Fingerprint(t *Table) string {
	syms := make([]Symbol, len(t.symbols))
	copy(syms, t.symbols)
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Kind != syms[j].Kind {
			return syms[i].Kind < syms[j].Kind
		}
		return syms[i].Name < syms[j].Name
	})

	h, _ := blake2b.New256(nil)
	for _, s := range syms {
		fmt.Fprintf(h, "%s\x00%s\x00%s\n", s.Kind, s.Name, s.Detail)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Short abbreviates a fingerprint for display.
func Short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
