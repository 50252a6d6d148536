package indra

import (
	"github.com/drpcorg/indra/schema"
	"github.com/prometheus/client_golang/prometheus"
)

var RelatedQueryCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "indra",
	Subsystem: "indexmap",
	Name:      "related_queries",
}, []string{"path"})

var RelatedJoinSide = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "indra",
	Subsystem: "indexmap",
	Name:      "related_join_side",
}, []string{"side"})

// RelatedIndexes answers which live indexes could be affected by an entity
// change: some labels became newly present or absent (changed), some stayed
// present (unchanged), and some property keys changed value. The result is
// a superset of the truly affected indexes; composite indexes cannot be
// confirmed without the unchanged property values, which this structure
// does not hold. False negatives never happen.
//
// Callers always have at least one changed facet; a call with no changed
// labels and no changed properties is a contract violation and yields an
// empty set.
func (m *IndexMap) RelatedIndexes(changedLabels, unchangedLabels, changedProps []uint32) schema.RefSet {
	// one changed label, no changed properties: the label bucket is exact
	if len(changedLabels) == 1 && len(changedProps) == 0 {
		RelatedQueryCount.WithLabelValues("single_label").Inc()
		result := schema.NewRefSet()
		if bucket, ok := m.byLabel[changedLabels[0]]; ok {
			result.Union(bucket)
		}
		return result
	}

	if len(changedLabels) == 0 && len(changedProps) == 1 {
		RelatedQueryCount.WithLabelValues("single_property").Inc()
		return m.relatedByProperties(unchangedLabels, changedProps)
	}

	RelatedQueryCount.WithLabelValues("general").Inc()
	result := m.extractByLabels(changedLabels)
	result.Union(m.relatedByProperties(unchangedLabels, changedProps))
	return result
}

// relatedByProperties is the cost-based join over the unchanged labels and
// the changed property keys. Both candidate counts are computed without
// materializing anything; if either count is zero the join is empty, and
// otherwise only the cheaper side (fewer bucket members to visit) is
// materialized. The choice never changes the result, only its cost.
func (m *IndexMap) relatedByProperties(unchangedLabels, changedProps []uint32) schema.RefSet {
	countByLabels := m.countByLabels(unchangedLabels)
	countByProps := m.countByProperties(changedProps)

	if countByLabels == 0 || countByProps == 0 {
		RelatedJoinSide.WithLabelValues("empty").Inc()
		return schema.NewRefSet()
	}
	if countByLabels < countByProps {
		RelatedJoinSide.WithLabelValues("labels").Inc()
		return m.extractByLabels(unchangedLabels)
	}
	RelatedJoinSide.WithLabelValues("properties").Inc()
	return m.extractByProperties(changedProps)
}

func (m *IndexMap) extractByLabels(labels []uint32) schema.RefSet {
	result := schema.NewRefSet()
	for _, label := range labels {
		if bucket, ok := m.byLabel[label]; ok {
			result.Union(bucket)
		}
	}
	return result
}

func (m *IndexMap) countByLabels(labels []uint32) (count int) {
	for _, label := range labels {
		count += len(m.byLabel[label])
	}
	return count
}

func (m *IndexMap) extractByProperties(props []uint32) schema.RefSet {
	result := schema.NewRefSet()
	for _, prop := range props {
		if bucket, ok := m.byProperty[prop]; ok {
			result.Union(bucket)
		}
	}
	return result
}

func (m *IndexMap) countByProperties(props []uint32) (count int) {
	for _, prop := range props {
		count += len(m.byProperty[prop])
	}
	return count
}
