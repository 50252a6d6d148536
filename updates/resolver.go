package updates

import (
	"log/slog"

	"github.com/drpcorg/indra"
	"github.com/drpcorg/indra/schema"
	"github.com/drpcorg/indra/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var ResolveCacheCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "indra",
	Subsystem: "updates",
	Name:      "resolve_cache",
}, []string{"result"})

var AffectedSetSize = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "indra",
	Subsystem: "updates",
	Name:      "affected_set_size",
	Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
})

type resolveKey struct {
	version uint64
	sig     uint64
}

// Resolver answers "which index descriptors does this change affect" with
// an LRU cache in front of the related-index query. Cache entries are
// keyed by snapshot version, so a publish implicitly invalidates every
// prior answer without any coordination.
type Resolver struct {
	ref   *indra.MapRef
	cache *lru.Cache[resolveKey, []schema.Ref]
	avg   *utils.AvgVal
	log   utils.Logger
}

func NewResolver(ref *indra.MapRef, log utils.Logger) *Resolver {
	if log == nil {
		log = utils.NewDefaultLogger(slog.LevelInfo)
	}
	cache, _ := lru.New[resolveKey, []schema.Ref](10000)
	return &Resolver{
		ref:   ref,
		cache: cache,
		avg:   utils.NewAvgVal(0),
		log:   log,
	}
}

func (r *Resolver) Affected(ch Change) []schema.Ref {
	return r.AffectedOn(r.ref.Current(), ch)
}

// AffectedOn resolves against a specific snapshot, for callers that need
// descriptor and proxy lookups to agree on one version.
func (r *Resolver) AffectedOn(snap *indra.IndexMap, ch Change) []schema.Ref {
	key := resolveKey{version: snap.Version(), sig: ch.Signature()}
	if refs, ok := r.cache.Get(key); ok {
		ResolveCacheCount.WithLabelValues("hit").Inc()
		return refs
	}
	ResolveCacheCount.WithLabelValues("miss").Inc()
	set := snap.RelatedIndexes(ch.ChangedLabels, ch.UnchangedLabels, ch.ChangedProps)
	refs := set.Refs()
	r.log.Debug("affected indexes resolved", "version", snap.Version(), "count", len(refs))
	r.cache.Add(key, refs)
	r.avg.Add(float64(len(refs)))
	AffectedSetSize.Observe(float64(len(refs)))
	return refs
}

// AvgResultSize is the running average of resolved set sizes since start.
func (r *Resolver) AvgResultSize() float64 {
	return r.avg.Val()
}
