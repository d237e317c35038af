// Package reorder turns column header drags into a new column order.
//
// All moves use array-move semantics: the dragged column is removed and
// reinserted, shifting every column between the two positions by one slot.
// Pointer drops and keyboard nudges go through the same Move.
package reorder

import "slices"

// Move returns a copy of order with the element at from reinserted at to.
// Out-of-range indices are clamped; an empty order is returned unchanged.
func Move[T any](order []T, from, to int) []T {
	out := slices.Clone(order)
	if len(out) == 0 {
		return out
	}
	from = clamp(from, 0, len(out)-1)
	to = clamp(to, 0, len(out)-1)
	if from == to {
		return out
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

// MoveTo removes id from order if present and inserts it at
// min(target, len(remaining)). An absent id is inserted as new.
func MoveTo[T comparable](order []T, id T, target int) []T {
	out := slices.Clone(order)
	if idx := slices.Index(out, id); idx >= 0 {
		out = slices.Delete(out, idx, idx+1)
	}
	return slices.Insert(out, clamp(target, 0, len(out)), id)
}

// Nudge moves id by delta slots, the keyboard equivalent of a pointer drag
// over the same distance. It reports false when id is not in order or the
// move is a no-op.
func Nudge[T comparable](order []T, id T, delta int) ([]T, bool) {
	from := slices.Index(order, id)
	if from < 0 {
		return slices.Clone(order), false
	}
	to := clamp(from+delta, 0, len(order)-1)
	if to == from {
		return slices.Clone(order), false
	}
	return Move(order, from, to), true
}

// Session tracks one drag gesture on a column header.
type Session[T comparable] struct {
	active bool
	source T
	index  int
}

// Start captures the dragged id and its index in order. It reports false
// when id is not part of order.
func (s *Session[T]) Start(id T, order []T) bool {
	idx := slices.Index(order, id)
	if idx < 0 {
		s.Cancel()
		return false
	}
	s.active = true
	s.source = id
	s.index = idx
	return true
}

// Active reports whether a drag is in progress.
func (s *Session[T]) Active() bool {
	return s.active
}

// Source returns the dragged id and its index at drag start.
func (s *Session[T]) Source() (T, int) {
	return s.source, s.index
}

// Drop ends the drag over target. The source is reinserted at the target's
// index in the current order. Dropping on itself, on an id that cannot be
// resolved, or without an active drag leaves order unchanged.
func (s *Session[T]) Drop(target T, order []T) ([]T, bool) {
	defer s.Cancel()
	if !s.active || target == s.source {
		return slices.Clone(order), false
	}
	from := slices.Index(order, s.source)
	to := slices.Index(order, target)
	if from < 0 || to < 0 {
		return slices.Clone(order), false
	}
	return Move(order, from, to), true
}

// Cancel abandons the drag.
func (s *Session[T]) Cancel() {
	var zero T
	s.active = false
	s.source = zero
	s.index = -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
