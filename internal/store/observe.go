package store

import (
	"time"

	"nickandperla.net/sentinel/internal/metrics"
)

// observe starts a latency measurement; call the returned func when done.
func observe(backend, op string) func() {
	start := time.Now()
	return func() {
		metrics.StoreLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	}
}

// permitted reports whether ownerID may mutate a record owned by actual.
func permitted(ownerID, actual int64) bool {
	return ownerID == AnyOwner || ownerID == actual
}
