// Package indra is the index-bookkeeping layer of a graph database kernel:
// an in-memory registry of every live secondary index, inverted label and
// property lookups answering "which indexes could this write affect", and
// cheap copy-on-write snapshots published through MapRef.
package indra

import (
	"fmt"
	"iter"

	"github.com/drpcorg/indra/schema"
)

// IndexMap bundles five interdependent mappings over the live IndexProxy
// set. A single writer either mutates its own private clone or updates the
// map while nothing else reads it; once published via MapRef an IndexMap
// is never written again, which is what makes lock-free reads safe.
type IndexMap struct {
	version uint64 // stamped by MapRef at publication, 0 until then

	byId           map[uint64]IndexProxy
	byDescriptor   map[schema.Ref]IndexProxy
	idByDescriptor map[schema.Ref]uint64
	byLabel        map[uint32]schema.RefSet
	byProperty     map[uint32]schema.RefSet
}

func NewIndexMap() *IndexMap {
	return newIndexMap(
		make(map[uint64]IndexProxy),
		make(map[schema.Ref]IndexProxy),
		make(map[schema.Ref]uint64),
	)
}

// NewIndexMapOf adopts an id-to-proxy mapping (the catalog bootstrap shape)
// and rebuilds every other mapping from it with a single scan.
func NewIndexMapOf(byId map[uint64]IndexProxy) *IndexMap {
	byDescriptor := make(map[schema.Ref]IndexProxy, len(byId))
	idByDescriptor := make(map[schema.Ref]uint64, len(byId))
	for id, proxy := range byId {
		byDescriptor[proxy.Schema()] = proxy
		idByDescriptor[proxy.Schema()] = id
	}
	return newIndexMap(byId, byDescriptor, idByDescriptor)
}

func newIndexMap(
	byId map[uint64]IndexProxy,
	byDescriptor map[schema.Ref]IndexProxy,
	idByDescriptor map[schema.Ref]uint64,
) *IndexMap {
	m := &IndexMap{
		byId:           byId,
		byDescriptor:   byDescriptor,
		idByDescriptor: idByDescriptor,
		byLabel:        make(map[uint32]schema.RefSet),
		byProperty:     make(map[uint32]schema.RefSet),
	}
	for ref := range byDescriptor {
		m.addToLookups(ref)
	}
	return m
}

// Version is the publication stamp assigned by MapRef; 0 for a snapshot
// that was never published.
func (m *IndexMap) Version() uint64 {
	return m.version
}

func (m *IndexMap) ById(id uint64) (IndexProxy, bool) {
	proxy, ok := m.byId[id]
	return proxy, ok
}

func (m *IndexMap) ByDescriptor(ref schema.Ref) (IndexProxy, bool) {
	proxy, ok := m.byDescriptor[ref]
	return proxy, ok
}

func (m *IndexMap) IdFor(ref schema.Ref) (uint64, bool) {
	id, ok := m.idByDescriptor[ref]
	return id, ok
}

// Insert installs proxy under id and under its schema ref. A repeated id
// silently overwrites. A second id inserted under an already-used schema
// replaces the descriptor entries but leaves the old id reachable through
// ById until it is removed explicitly; callers that want a clean swap
// remove the old id first. Panics on an invalid (zero) schema ref, since
// a descriptor with no properties would corrupt the property lookup
// invisibly.
func (m *IndexMap) Insert(id uint64, proxy IndexProxy) {
	ref := proxy.Schema()
	if !ref.Valid() {
		panic(fmt.Sprintf("indra: insert of index %d with invalid schema ref", id))
	}
	m.byId[id] = proxy
	m.byDescriptor[ref] = proxy
	m.idByDescriptor[ref] = id
	m.addToLookups(ref)
}

// Remove deletes the index under id from every mapping and returns the
// removed proxy. An unknown id is a no-op, not an error.
func (m *IndexMap) Remove(id uint64) (IndexProxy, bool) {
	proxy, ok := m.byId[id]
	if !ok {
		return nil, false
	}
	delete(m.byId, id)

	ref := proxy.Schema()
	delete(m.byDescriptor, ref)
	delete(m.idByDescriptor, ref)

	removeFromLookup(m.byLabel, ref.Label(), ref)
	for _, prop := range ref.PropIds() {
		removeFromLookup(m.byProperty, prop, ref)
	}
	return proxy, true
}

func (m *IndexMap) Proxies() iter.Seq[IndexProxy] {
	return func(yield func(IndexProxy) bool) {
		for _, proxy := range m.byId {
			if !yield(proxy) {
				return
			}
		}
	}
}

func (m *IndexMap) Descriptors() iter.Seq[schema.Ref] {
	return func(yield func(schema.Ref) bool) {
		for ref := range m.byDescriptor {
			if !yield(ref) {
				return
			}
		}
	}
}

func (m *IndexMap) Ids() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for id := range m.byId {
			if !yield(id) {
				return
			}
		}
	}
}

func (m *IndexMap) ForEach(f func(id uint64, proxy IndexProxy) bool) {
	for id, proxy := range m.byId {
		if !f(id, proxy) {
			return
		}
	}
}

func (m *IndexMap) Size() int {
	return len(m.byId)
}

// Clone makes an independent snapshot: the three primary maps are copied
// into fresh containers (sharing the IndexProxy values, nothing else) and
// the two inverted lookups are rebuilt from scratch rather than copied.
// Mutating either side afterwards never shows through on the other.
func (m *IndexMap) Clone() *IndexMap {
	byId := make(map[uint64]IndexProxy, len(m.byId))
	for id, proxy := range m.byId {
		byId[id] = proxy
	}
	byDescriptor := make(map[schema.Ref]IndexProxy, len(m.byDescriptor))
	for ref, proxy := range m.byDescriptor {
		byDescriptor[ref] = proxy
	}
	idByDescriptor := make(map[schema.Ref]uint64, len(m.idByDescriptor))
	for ref, id := range m.idByDescriptor {
		idByDescriptor[ref] = id
	}
	return newIndexMap(byId, byDescriptor, idByDescriptor)
}

func (m *IndexMap) addToLookups(ref schema.Ref) {
	addToLookup(m.byLabel, ref.Label(), ref)
	for _, prop := range ref.PropIds() {
		addToLookup(m.byProperty, prop, ref)
	}
}

func addToLookup(lookup map[uint32]schema.RefSet, key uint32, ref schema.Ref) {
	bucket, ok := lookup[key]
	if !ok {
		bucket = schema.NewRefSet()
		lookup[key] = bucket
	}
	bucket.Add(ref)
}

// Empty buckets are deleted outright so bucket presence stays meaningful.
func removeFromLookup(lookup map[uint32]schema.RefSet, key uint32, ref schema.Ref) {
	bucket, ok := lookup[key]
	if !ok {
		return
	}
	delete(bucket, ref)
	if len(bucket) == 0 {
		delete(lookup, key)
	}
}
