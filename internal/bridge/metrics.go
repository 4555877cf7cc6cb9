package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_sync_runs_total",
			Help: "Total number of sync passes",
		},
		[]string{"direction", "result"},
	)

	syncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_sync_records_total",
			Help: "Records handled by sync passes",
		},
		[]string{"direction", "kind"},
	)

	watchChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_watch_changes_total",
			Help: "Lead store changes applied to the projection",
		},
		[]string{"op"},
	)
)

func recordSync(direction string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	syncRuns.WithLabelValues(direction, result).Inc()
}

func recordRecords(direction string, s SyncStats) {
	syncRecords.WithLabelValues(direction, "new").Add(float64(s.NewLeads + s.Inserted))
	syncRecords.WithLabelValues(direction, "updated").Add(float64(s.UpdatedLeads + s.Updated))
	syncRecords.WithLabelValues(direction, "error").Add(float64(s.Errors))
}
