package sub

import (
	"encoding/binary"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID identifies a subscription across frames. Two IDs are the same subscription
// when their segments are equal, in order.
type ID struct {
	segments []string
	key      uint64
}

func NewID(segments ...string) ID {
	id := ID{segments: append([]string(nil), segments...)}
	id.key = hashSegments(id.segments)
	return id
}

// Key is the 64-bit hash used for active-set membership.
func (id ID) Key() uint64 {
	return id.key
}

func (id ID) Segments() []string {
	return append([]string(nil), id.segments...)
}

func (id ID) Len() int {
	return len(id.segments)
}

func (id ID) IsZero() bool {
	return len(id.segments) == 0
}

func (id ID) Equal(other ID) bool {
	if id.key != other.key || len(id.segments) != len(other.segments) {
		return false
	}
	for i, s := range id.segments {
		if other.segments[i] != s {
			return false
		}
	}
	return true
}

// Prefix returns a new ID with segment in front of id's segments.
func (id ID) Prefix(segment string) ID {
	segments := make([]string, 0, len(id.segments)+1)
	segments = append(segments, segment)
	segments = append(segments, id.segments...)
	return ID{segments: segments, key: hashSegments(segments)}
}

func (id ID) String() string {
	return strings.Join(id.segments, "/")
}

// Every segment is length prefixed so ["a", "bc"] and ["ab", "c"] hash apart.
// No segments hash to zero so the zero ID and NewID() are the same key.
func hashSegments(segments []string) uint64 {
	if len(segments) == 0 {
		return 0
	}
	var (
		d   xxhash.Digest
		buf [8]byte
	)
	d.Reset()
	for _, s := range segments {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		d.Write(buf[:])
		d.WriteString(s)
	}
	return d.Sum64()
}
