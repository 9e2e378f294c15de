package trie

import "github.com/prometheus/client_golang/prometheus"

var (
	operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mpt",
		Subsystem: "trie",
		Name:      "operations_total",
		Help:      "Trie operations by type.",
	}, []string{"op"})

	restructures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mpt",
		Subsystem: "trie",
		Name:      "restructures_total",
		Help:      "Leaf splits on insert and subtree collapses on delete.",
	}, []string{"kind"})
)

// Collectors returns the metrics of the package so that the caller can
// register them with its own registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{operations, restructures}
}
