package utils

// Heap is a binary min-heap ordered by the Less function, for element
// types that are not naturally ordered (the engine keys deferred
// merges on their deadline).
type Heap[T any] struct {
	Less func(a, b T) bool

	buf []T
}

func (h *Heap[T]) Len() int {
	return len(h.buf)
}

// Peek returns the minimum element without removing it.
func (h *Heap[T]) Peek() T {
	return h.buf[0]
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *Heap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	h.up(h.Len() - 1)
}

// Pop removes and returns the minimum element (according to Less) from the heap.
// The complexity is O(log n) where n = h.Len().
func (h *Heap[T]) Pop() (min T) {
	min = h.buf[0]
	n := h.Len() - 1
	h.swap(0, n)
	h.down(0, n)
	var zero T
	h.buf[n] = zero
	h.buf = h.buf[0:n]
	return
}

func (h *Heap[T]) swap(i, j int) {
	h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
}

func (h *Heap[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.Less(h.buf[j], h.buf[i]) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *Heap[T]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.Less(h.buf[j2], h.buf[j1]) {
			j = j2 // = 2*i + 2  // right child
		}
		if !h.Less(h.buf[j], h.buf[i]) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}
