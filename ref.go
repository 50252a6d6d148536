package indra

import (
	"sync"
	"sync/atomic"

	"github.com/drpcorg/indra/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

var SnapshotSwapCount = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "indra",
	Subsystem: "mapref",
	Name:      "snapshot_swaps",
})

var SnapshotSize = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "indra",
	Subsystem: "mapref",
	Name:      "snapshot_size",
})

type SwapListener func(*IndexMap)

// MapRef is the publication point for the clone-mutate-publish discipline:
// readers grab the current snapshot lock-free and keep using it for as long
// as they like; the single writer goes through Modify, which clones the
// current snapshot, applies the mutation to the clone and swaps it in
// atomically. The write lock serializes writers only, it is never taken on
// the read path.
type MapRef struct {
	current   atomic.Pointer[IndexMap]
	version   atomic.Uint64
	writeLock sync.Mutex
	listeners *xsync.MapOf[string, SwapListener]
	log       utils.Logger
}

func NewMapRef(initial *IndexMap, log utils.Logger) *MapRef {
	if initial == nil {
		initial = NewIndexMap()
	}
	r := &MapRef{
		listeners: xsync.NewMapOf[string, SwapListener](),
		log:       log,
	}
	initial.version = r.version.Add(1)
	r.current.Store(initial)
	SnapshotSize.Set(float64(initial.Size()))
	return r
}

// Current never blocks and never returns nil. The returned snapshot is
// immutable; mutate through Modify.
func (r *MapRef) Current() *IndexMap {
	return r.current.Load()
}

// Version of the latest published snapshot.
func (r *MapRef) Version() uint64 {
	return r.version.Load()
}

// Modify runs mutate against a private clone of the current snapshot, then
// publishes the clone and returns it. Listeners run synchronously in the
// writer's goroutine, after the swap. Concurrent Modify calls serialize;
// mutating a snapshot outside Modify breaks the single-writer contract.
func (r *MapRef) Modify(mutate func(*IndexMap)) *IndexMap {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	next := r.current.Load().Clone()
	mutate(next)
	next.version = r.version.Add(1)
	r.current.Store(next)

	SnapshotSwapCount.Inc()
	SnapshotSize.Set(float64(next.Size()))
	if r.log != nil {
		r.log.Debug("index map swapped", "version", next.version, "size", next.Size())
	}
	r.listeners.Range(func(name string, fn SwapListener) bool {
		fn(next)
		return true
	})
	return next
}

// Subscribe registers a swap listener under name, replacing any previous
// listener with the same name.
func (r *MapRef) Subscribe(name string, fn SwapListener) {
	r.listeners.Store(name, fn)
}

func (r *MapRef) Unsubscribe(name string) {
	r.listeners.Delete(name)
}
