package quiz

import "sort"

// Sibling order maintenance. Positions within one sibling scope (questions of
// a quiz, options of a question, or options of one matching group) must form
// {0..N-1} after every mutation. The sequencer only ever compacts; it never
// reorders siblings by content.

// NextPosition returns the append slot for a sibling scope: max+1, or 0 for
// an empty scope.
func NextPosition(existing []int) int {
	next := 0
	for _, p := range existing {
		if p >= next {
			next = p + 1
		}
	}
	return next
}

// Renumber maps the given positions to a dense 0-based sequence preserving
// relative order. Ties keep their submission order (stable).
func Renumber(positions []int) []int {
	idx := make([]int, len(positions))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return positions[idx[a]] < positions[idx[b]]
	})
	out := make([]int, len(positions))
	for rank, i := range idx {
		out[i] = rank
	}
	return out
}

// sequenceEdits assigns a definitive position to every submitted option of
// one sibling scope. Items without an explicit position are appended after
// the highest requested one, in submission order, then the whole scope is
// compacted to 0..N-1.
func sequenceEdits(opts []OptionEdit) []int {
	requested := make([]int, len(opts))
	next := 0
	for _, o := range opts {
		if o.Position != nil && *o.Position >= next {
			next = *o.Position + 1
		}
	}
	for i, o := range opts {
		if o.Position != nil {
			requested[i] = *o.Position
		} else {
			requested[i] = next
			next++
		}
	}
	return Renumber(requested)
}
