package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookwise",
			Name:      "availability_checks_total",
			Help:      "Availability checks by outcome.",
		},
		[]string{"outcome"},
	)

	resourceConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookwise",
			Name:      "resource_conflicts_total",
			Help:      "Detected resource conflicts by resource type.",
		},
		[]string{"type"},
	)

	allocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookwise",
			Name:      "allocations_total",
			Help:      "Schedule allocations by outcome.",
		},
		[]string{"outcome"},
	)

	allocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bookwise",
			Name:      "allocation_duration_seconds",
			Help:      "Duration of schedule allocations.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	overallocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookwise",
			Name:      "overallocations_total",
			Help:      "Deliberate overallocations by resource type.",
		},
		[]string{"type"},
	)

	snapshotRegens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookwise",
			Name:      "snapshot_regenerations_total",
			Help:      "Calendar snapshot regenerations by outcome.",
		},
		[]string{"outcome"},
	)

	syncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bookwise",
			Name:      "sync_queue_depth",
			Help:      "Pending calendar sync tasks.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			availabilityChecks,
			resourceConflicts,
			allocations,
			allocationDuration,
			overallocations,
			snapshotRegens,
			syncQueueDepth,
		)
	})
}

// IncAvailabilityCheck increments the check counter; outcome is "available",
// "conflict" or "error".
func IncAvailabilityCheck(outcome string) {
	availabilityChecks.WithLabelValues(outcome).Inc()
}

func IncResourceConflict(resourceType string) {
	resourceConflicts.WithLabelValues(resourceType).Inc()
}

// IncAllocation increments the allocation counter; outcome is "ok", "degraded" or "error".
func IncAllocation(outcome string) {
	allocations.WithLabelValues(outcome).Inc()
}

func ObserveAllocationDuration(d time.Duration) {
	allocationDuration.Observe(d.Seconds())
}

func IncOverallocation(resourceType string) {
	overallocations.WithLabelValues(resourceType).Inc()
}

func IncSnapshotRegen(outcome string) {
	snapshotRegens.WithLabelValues(outcome).Inc()
}

func SetSyncQueueDepth(depth int) {
	syncQueueDepth.Set(float64(depth))
}
