// Package schema defines the descriptors used to say what an index covers:
// one label id plus an ordered list of property-key ids. A Ref is a plain
// comparable value, so it can key a Go map directly; the property ids are
// packed into an unexported string to keep the type immutable.
package schema

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash"
)

var ErrNoProps = errors.New("indra: a schema ref needs at least one property")

// Ref describes what one index covers. The zero Ref is not valid: every
// real descriptor has at least one property-key id. Property order matters,
// a composite index on (7,8) is not the index on (8,7).
type Ref struct {
	label uint32
	props string // big-endian uint32s, 4 bytes each
}

func NewRef(label uint32, props ...uint32) (Ref, error) {
	if len(props) == 0 {
		return Ref{}, ErrNoProps
	}
	packed := make([]byte, 0, len(props)*4)
	for _, p := range props {
		packed = binary.BigEndian.AppendUint32(packed, p)
	}
	return Ref{label: label, props: string(packed)}, nil
}

// MustRef is NewRef for fixtures and literals known to be well-formed.
func MustRef(label uint32, props ...uint32) Ref {
	ref, err := NewRef(label, props...)
	if err != nil {
		panic(err)
	}
	return ref
}

func (r Ref) Valid() bool {
	return len(r.props) > 0
}

func (r Ref) Label() uint32 {
	return r.label
}

func (r Ref) PropCount() int {
	return len(r.props) / 4
}

// PropIds returns the property-key ids in declaration order.
// The slice is freshly allocated, callers may keep it.
func (r Ref) PropIds() []uint32 {
	ids := make([]uint32, 0, r.PropCount())
	for i := 0; i+4 <= len(r.props); i += 4 {
		ids = append(ids, binary.BigEndian.Uint32([]byte(r.props[i:i+4])))
	}
	return ids
}

func (r Ref) HasProp(prop uint32) bool {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], prop)
	for i := 0; i+4 <= len(r.props); i += 4 {
		if r.props[i:i+4] == string(key[:]) {
			return true
		}
	}
	return false
}

// Hash is stable across processes (xxhash of the packed form), usable
// for cache keys and signatures.
func (r Ref) Hash() uint64 {
	buf := make([]byte, 0, 4+len(r.props))
	buf = binary.BigEndian.AppendUint32(buf, r.label)
	buf = append(buf, r.props...)
	return xxhash.Sum64(buf)
}

// String renders ":3(7,8)" style, for logs only.
func (r Ref) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, ":%d(", r.label)
	for i, p := range r.PropIds() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", p)
	}
	b.WriteByte(')')
	return b.String()
}
