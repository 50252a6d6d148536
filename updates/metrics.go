package updates

import "github.com/prometheus/client_golang/prometheus"

func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		ResolveCacheCount,
		AffectedSetSize,
		DispatchCount,
	}
}
