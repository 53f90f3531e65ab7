// Package reorder computes new positions for drag-and-drop moves inside and across ordered
// containers. Inputs are never modified; every function returns fresh slices whose
// positions are renumbered 0..n-1.
package reorder

// Reorder moves the item at from to index to within one container. The destination is
// clamped to the container. It returns false, and the input unchanged, when the move is a
// no-op or from is out of range.
func Reorder[T any](items []T, from, to int, setPos func(*T, int)) ([]T, bool) {
	if from < 0 || from >= len(items) {
		return items, false
	}

	to = clamp(to, 0, len(items)-1)
	if to == from {
		return items, false
	}

	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = insert(out, to, items[from])

	return Renumber(out, setPos), true
}

// MoveBetween moves the item at from in src to destIndex in dst. reparent points the moved
// item at its new container. Both containers come back densely renumbered.
func MoveBetween[T any](
	src, dst []T,
	from, destIndex int,
	setPos func(*T, int),
	reparent func(*T),
) ([]T, []T, bool) {
	if from < 0 || from >= len(src) {
		return src, dst, false
	}

	item := src[from]
	if reparent != nil {
		reparent(&item)
	}

	newSrc := make([]T, 0, len(src)-1)
	newSrc = append(newSrc, src[:from]...)
	newSrc = append(newSrc, src[from+1:]...)

	newDst := make([]T, 0, len(dst)+1)
	newDst = append(newDst, dst...)
	newDst = insert(newDst, clamp(destIndex, 0, len(dst)), item)

	return Renumber(newSrc, setPos), Renumber(newDst, setPos), true
}

// Remove drops the item at index and renumbers the rest.
func Remove[T any](items []T, index int, setPos func(*T, int)) ([]T, bool) {
	if index < 0 || index >= len(items) {
		return items, false
	}

	out := make([]T, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)

	return Renumber(out, setPos), true
}

// Renumber returns a copy of items whose positions match their indexes.
func Renumber[T any](items []T, setPos func(*T, int)) []T {
	out := make([]T, len(items))
	copy(out, items)

	for i := range out {
		setPos(&out[i], i)
	}

	return out
}

// IndexOf returns the index of the first item matching, or -1.
func IndexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}

	return -1
}

// Dense reports whether positions is exactly {0..n-1} in order.
func Dense(positions []int) bool {
	for i, p := range positions {
		if p != i {
			return false
		}
	}

	return true
}

func insert[T any](items []T, at int, item T) []T {
	var zero T

	items = append(items, zero)
	copy(items[at+1:], items[at:])
	items[at] = item

	return items
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
