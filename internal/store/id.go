package store

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// NewTagID returns a random positive 63-bit tag id.
func NewTagID() int64 {
	u := uuid.New()
	id := int64(binary.BigEndian.Uint64(u[:8]) >> 1)
	if id == 0 {
		return NewTagID()
	}
	return id
}
