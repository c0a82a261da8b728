// Package named provides ordered, name-addressable lists where an entry's
// position is itself an identifier referenced from elsewhere.
package named

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no entry carries the requested name.
var ErrNotFound = errors.New("not found")

// Entry is a single named slot. An empty Name marks an anonymous slot which
// never matches a lookup.
type Entry[T any] struct {
	Name  string
	Value T
}

// List is an ordered sequence of named entries. Names are expected to be
// unique but this is not enforced; lookups return the first match.
type List[T any] struct {
	entries []Entry[T]
}

// NewList creates a list from entries, keeping their order.
func NewList[T any](entries ...Entry[T]) *List[T] {
	l := &List[T]{entries: make([]Entry[T], len(entries))}
	copy(l.entries, entries)
	return l
}

// Len returns the number of slots, including anonymous and nil ones.
func (l *List[T]) Len() int {
	return len(l.entries)
}

// At returns the entry at position i.
func (l *List[T]) At(i int) Entry[T] {
	return l.entries[i]
}

// Entries returns the backing entries. Callers must not append to it.
func (l *List[T]) Entries() []Entry[T] {
	return l.entries
}

// Names returns the names of all slots in order.
func (l *List[T]) Names() []string {
	names := make([]string, len(l.entries))
	for i, e := range l.entries {
		names[i] = e.Name
	}
	return names
}

// Append adds an entry at the end and returns its position.
func (l *List[T]) Append(name string, v T) int {
	l.entries = append(l.entries, Entry[T]{Name: name, Value: v})
	return len(l.entries) - 1
}

// Index returns the position of the first entry named name.
func (l *List[T]) Index(name string) (int, error) {
	if name != "" {
		for i, e := range l.entries {
			if e.Name == name {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Find returns the value of the first entry named name.
func (l *List[T]) Find(name string) (T, error) {
	i, err := l.Index(name)
	if err != nil {
		var zero T
		return zero, err
	}
	return l.entries[i].Value, nil
}

// Set replaces the value of the entry named name, keeping its position, or
// appends a new entry when the name is absent. It returns the entry's
// position and whether an existing entry was replaced.
func (l *List[T]) Set(name string, v T) (pos int, replaced bool) {
	if i, err := l.Index(name); err == nil {
		l.entries[i].Value = v
		return i, true
	}
	return l.Append(name, v), false
}
