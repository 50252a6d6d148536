// Package updates is the transaction-validator side of index bookkeeping:
// it turns an entity's before/after label sets and touched property keys
// into a Change, resolves the affected index descriptors against the
// current registry snapshot, and hands updates to the online index engines.
package updates

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash"
)

// Change describes one entity write the way the related-index query wants
// it: labels that became newly present or absent, labels that stayed
// present, and property keys whose value changed.
type Change struct {
	ChangedLabels   []uint32
	UnchangedLabels []uint32
	ChangedProps    []uint32
}

// Diff computes a Change from an entity's label sets before and after the
// write, plus the property keys the write touched. All three output slices
// come back sorted.
func Diff(beforeLabels, afterLabels, changedProps []uint32) Change {
	before := make(map[uint32]struct{}, len(beforeLabels))
	for _, l := range beforeLabels {
		before[l] = struct{}{}
	}
	ch := Change{}
	seen := make(map[uint32]struct{}, len(afterLabels))
	for _, l := range afterLabels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		if _, ok := before[l]; ok {
			ch.UnchangedLabels = append(ch.UnchangedLabels, l)
		} else {
			ch.ChangedLabels = append(ch.ChangedLabels, l)
		}
	}
	for _, l := range beforeLabels {
		if _, ok := seen[l]; !ok {
			ch.ChangedLabels = append(ch.ChangedLabels, l)
			seen[l] = struct{}{}
		}
	}
	ch.ChangedProps = slices.Clone(changedProps)
	slices.Sort(ch.ChangedLabels)
	slices.Sort(ch.UnchangedLabels)
	slices.Sort(ch.ChangedProps)
	ch.ChangedProps = slices.Compact(ch.ChangedProps)
	return ch
}

// Empty reports a change with no signal at all; such a change never
// reaches the related-index query.
func (ch Change) Empty() bool {
	return len(ch.ChangedLabels) == 0 && len(ch.ChangedProps) == 0
}

// Signature is a stable hash of the change, used as a cache key together
// with the snapshot version. Facets are length-prefixed so that moving an
// id between facets always changes the signature.
func (ch Change) Signature() uint64 {
	buf := make([]byte, 0, 4*(3+len(ch.ChangedLabels)+len(ch.UnchangedLabels)+len(ch.ChangedProps)))
	for _, facet := range [][]uint32{ch.ChangedLabels, ch.UnchangedLabels, ch.ChangedProps} {
		sorted := slices.Clone(facet)
		slices.Sort(sorted)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(sorted)))
		for _, id := range sorted {
			buf = binary.BigEndian.AppendUint32(buf, id)
		}
	}
	return xxhash.Sum64(buf)
}
