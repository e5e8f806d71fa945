package graph

import (
	"errors"

	"github.com/google/uuid"
)

/*
	ID is the 128-bit globally unique node identifier.

	Fresh ids are UUIDv7, so ids generated on one replica sort by
	creation time. The id is immutable for the node's lifetime and is
	the only thing a Ref value carries.
*/
type ID [16]byte

// ID0 is the zero id. No live node ever carries it.
var ID0 ID

var ErrBadID = errors.New("rod: malformed node id")

// NewID mints a fresh time-sortable id.
func NewID() ID {
	u, err := uuid.NewV7()
	if err != nil {
		// v7 generation only fails if the entropy source does;
		// fall back to the random-based v4.
		u = uuid.New()
	}
	return ID(u)
}

func (id ID) IsZero() bool {
	return id == ID0
}

// String is the canonical textual form, also used as the node's
// on-disk file name.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

func IDFromString(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID0, ErrBadID
	}
	return ID(u), nil
}

func (id ID) Bytes() []byte {
	return id[:]
}

func IDFromBytes(by []byte) (ID, error) {
	if len(by) != 16 {
		return ID0, ErrBadID
	}
	var id ID
	copy(id[:], by)
	return id, nil
}
