package utils

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeapOrdering(t *testing.T) {
	h := Heap[int]{Less: func(a, b int) bool { return a < b }}

	input := rand.Perm(100)
	for _, v := range input {
		h.Push(v)
	}
	assert.Equal(t, 100, h.Len())
	assert.Equal(t, 0, h.Peek())

	var out []int
	for h.Len() > 0 {
		out = append(out, h.Pop())
	}
	assert.True(t, sort.IntsAreSorted(out))
}

func TestHeapDuplicates(t *testing.T) {
	type entry struct {
		at   float64
		name string
	}
	h := Heap[entry]{Less: func(a, b entry) bool { return a.at < b.at }}
	h.Push(entry{at: 5, name: "b"})
	h.Push(entry{at: 5, name: "a"})
	h.Push(entry{at: 1, name: "c"})

	assert.Equal(t, 1.0, h.Pop().at)
	assert.Equal(t, 5.0, h.Pop().at)
	assert.Equal(t, 5.0, h.Pop().at)
	assert.Equal(t, 0, h.Len())
}
