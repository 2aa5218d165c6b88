package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	// Registry holds every rmfd metric. It is private to the process so a
	// run can be exported as a node_exporter textfile without collector noise.
	Registry = prometheus.NewRegistry()
)

// Init creates and registers all metrics.
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initRemovalMetrics()
		registerRemovalMetrics()

		// Present from the first scrape even if nothing is removed.
		LastRunTimestamp.Set(0)
		for _, s := range RunStatuses {
			LastRunStatus.WithLabelValues(s).Set(0)
		}
	})
}

// WriteTextfile atomically writes the current values of all metrics to path
// in the Prometheus text format.
func WriteTextfile(path string) error {
	Init()
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
