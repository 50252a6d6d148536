package indra

import "github.com/prometheus/client_golang/prometheus"

// Collectors returns every metric of the core package for registration by
// the embedding process.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RelatedQueryCount,
		RelatedJoinSide,
		SnapshotSwapCount,
		SnapshotSize,
	}
}
