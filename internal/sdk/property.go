package sdk

import (
	"fmt"
	"strings"
)

// Property is the identity shared by named, optionally disabled entities.
type Property struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

func (p *Property) Kind() Kind { return KindProperty }

// PropertyList is an ordered collection indexed by a per-type key. Ids are
// unique within a list; keys may repeat and resolve to the first match.
type PropertyList[T any] struct {
	items []T
	key   func(T) string
	id    func(T) string
}

// NewPropertyList creates a list. id may be nil when items carry no identity.
func NewPropertyList[T any](key, id func(T) string, items ...T) *PropertyList[T] {
	return &PropertyList[T]{key: key, id: id, items: append([]T(nil), items...)}
}

// Add appends item, rejecting a duplicate non-empty id.
func (l *PropertyList[T]) Add(item T) error {
	if l.id != nil {
		if id := l.id(item); id != "" {
			for _, existing := range l.items {
				if l.id(existing) == id {
					return fmt.Errorf("%w: %s", ErrDuplicateID, id)
				}
			}
		}
	}
	l.items = append(l.items, item)
	return nil
}

// Upsert replaces the first item sharing item's key, or appends it.
// It reports whether an existing item was replaced.
func (l *PropertyList[T]) Upsert(item T) bool {
	key := l.key(item)
	for i, existing := range l.items {
		if l.key(existing) == key {
			l.items[i] = item
			return true
		}
	}
	l.items = append(l.items, item)
	return false
}

// Remove drops every item whose key matches and returns how many were removed.
func (l *PropertyList[T]) Remove(key string, ignoreCase bool) int {
	kept := l.items[:0]
	removed := 0
	for _, item := range l.items {
		if keyEqual(l.key(item), key, ignoreCase) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	var zero T
	for i := len(kept); i < len(l.items); i++ {
		l.items[i] = zero
	}
	l.items = kept
	return removed
}

// RemoveFunc drops every item for which fn returns true.
func (l *PropertyList[T]) RemoveFunc(fn func(T) bool) int {
	kept := make([]T, 0, len(l.items))
	for _, item := range l.items {
		if !fn(item) {
			kept = append(kept, item)
		}
	}
	removed := len(l.items) - len(kept)
	l.items = kept
	return removed
}

// Find returns the first item whose key matches.
func (l *PropertyList[T]) Find(key string, ignoreCase bool) (T, bool) {
	for _, item := range l.items {
		if keyEqual(l.key(item), key, ignoreCase) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// FindFunc returns the first item for which fn returns true.
func (l *PropertyList[T]) FindFunc(fn func(T) bool) (T, bool) {
	for _, item := range l.items {
		if fn(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Has reports whether any item's key matches.
func (l *PropertyList[T]) Has(key string, ignoreCase bool) bool {
	_, ok := l.Find(key, ignoreCase)
	return ok
}

// Idx returns the item at position i.
func (l *PropertyList[T]) Idx(i int) (T, bool) {
	if i < 0 || i >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[i], true
}

// IndexOf returns the position of the first item whose key matches, or -1.
func (l *PropertyList[T]) IndexOf(key string, ignoreCase bool) int {
	for i, item := range l.items {
		if keyEqual(l.key(item), key, ignoreCase) {
			return i
		}
	}
	return -1
}

func (l *PropertyList[T]) Count() int { return len(l.items) }

// All returns a copy of the items in insertion order.
func (l *PropertyList[T]) All() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func (l *PropertyList[T]) Each(fn func(T)) {
	for _, item := range l.items {
		fn(item)
	}
}

func (l *PropertyList[T]) Filter(fn func(T) bool) []T {
	var out []T
	for _, item := range l.items {
		if fn(item) {
			out = append(out, item)
		}
	}
	return out
}

func (l *PropertyList[T]) Clear() {
	l.items = nil
}

// Clone copies the list, applying copyItem to every element.
func (l *PropertyList[T]) Clone(copyItem func(T) T) *PropertyList[T] {
	out := &PropertyList[T]{key: l.key, id: l.id, items: make([]T, 0, len(l.items))}
	for _, item := range l.items {
		out.items = append(out.items, copyItem(item))
	}
	return out
}

func keyEqual(a, b string, ignoreCase bool) bool {
	if ignoreCase {
		return strings.EqualFold(a, b)
	}
	return a == b
}
