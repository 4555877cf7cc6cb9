package automation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_events_total",
			Help: "Automation events triggered",
		},
		[]string{"type"},
	)

	instancesFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_instances_finished_total",
			Help: "Sequence instances that reached a terminal state",
		},
		[]string{"sequence", "status"},
	)

	stepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_steps_total",
			Help: "Executed automation steps",
		},
		[]string{"type", "result"},
	)

	analyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_analytics_events_total",
			Help: "Analytics events tracked per sink",
		},
		[]string{"sink"},
	)

	queueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "automation_event_queue_size",
			Help: "Events currently being processed",
		},
	)
)
