package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDStringRoundTrip(t *testing.T) {
	id := NewID()
	assert.False(t, id.IsZero())

	back, err := IDFromString(id.String())
	assert.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = IDFromString("not an id")
	assert.ErrorIs(t, err, ErrBadID)
}

func TestIDBytesRoundTrip(t *testing.T) {
	id := NewID()
	back, err := IDFromBytes(id.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = IDFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrBadID)
}

func TestNewIDTimeSortable(t *testing.T) {
	// UUIDv7 ids sort by creation time; later ids compare higher.
	a := NewID()
	b := NewID()
	assert.NotEqual(t, a, b)
	assert.LessOrEqual(t, string(a[:]), string(b[:]))
}
