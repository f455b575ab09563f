// Package ranking orders search results, with a partial top-K selection for
// large inputs.
package ranking

import (
	"container/heap"
	"slices"
)

// TopKThreshold is the input size above which a limited ranking uses heap
// selection instead of a full sort
const TopKThreshold = 100

// Rank orders items by compare, reversed when ascending is false. A positive
// limit caps the output; above TopKThreshold items it also switches to an
// O(n log k) selection that yields the same items as sort-then-slice.
func Rank[T any](items []T, ascending bool, compare func(a, b T) int, limit int) []T {
	cmp := compare
	if !ascending {
		cmp = func(a, b T) int { return compare(b, a) }
	}

	if limit > 0 && len(items) > TopKThreshold && limit < len(items) {
		return topK(items, cmp, limit)
	}

	out := make([]T, len(items))
	copy(out, items)
	slices.SortStableFunc(out, cmp)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

type indexed[T any] struct {
	item  T
	index int
}

// boundHeap keeps the k best entries seen so far with the worst on top.
// Ties break on input position so the result matches a stable sort.
type boundHeap[T any] struct {
	entries []indexed[T]
	cmp     func(a, b T) int
}

func (h *boundHeap[T]) Len() int { return len(h.entries) }

func (h *boundHeap[T]) Less(i, j int) bool {
	return h.after(h.entries[i], h.entries[j])
}

func (h *boundHeap[T]) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *boundHeap[T]) Push(x interface{}) { h.entries = append(h.entries, x.(indexed[T])) }

func (h *boundHeap[T]) Pop() interface{} {
	old := h.entries
	n := len(old)
	x := old[n-1]
	h.entries = old[:n-1]
	return x
}

// after reports whether a ranks after b
func (h *boundHeap[T]) after(a, b indexed[T]) bool {
	if c := h.cmp(a.item, b.item); c != 0 {
		return c > 0
	}
	return a.index > b.index
}

func topK[T any](items []T, cmp func(a, b T) int, k int) []T {
	h := &boundHeap[T]{entries: make([]indexed[T], 0, k+1), cmp: cmp}

	for i, item := range items {
		entry := indexed[T]{item: item, index: i}
		if h.Len() < k {
			heap.Push(h, entry)
			continue
		}
		if h.after(h.entries[0], entry) {
			h.entries[0] = entry
			heap.Fix(h, 0)
		}
	}

	selected := h.entries
	slices.SortFunc(selected, func(a, b indexed[T]) int {
		if h.after(a, b) {
			return 1
		}
		if h.after(b, a) {
			return -1
		}
		return 0
	})

	out := make([]T, len(selected))
	for i, entry := range selected {
		out[i] = entry.item
	}
	return out
}
