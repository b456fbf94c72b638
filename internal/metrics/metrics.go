package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TasksStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gaga",
		Name:      "tasks_started_total",
		Help:      "Total number of download tasks submitted.",
	})

	TasksFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaga",
		Name:      "tasks_finished_total",
		Help:      "Total number of download tasks finished by result.",
	}, []string{"result"})

	ActiveTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gaga",
		Name:      "active_tasks",
		Help:      "Number of download tasks currently running.",
	})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gaga",
		Name:      "stage_duration_seconds",
		Help:      "Duration of task stages in seconds.",
		Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900, 1800, 3600},
	}, []string{"stage"})

	KeyRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaga",
		Name:      "key_requests_total",
		Help:      "Total number of content key resolutions by outcome.",
	}, []string{"outcome"})

	EventsIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaga",
		Name:      "events_ingested_total",
		Help:      "Total number of subprocess events published by channel.",
	}, []string{"channel"})

	PostProcessStepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gaga",
		Name:      "postprocess_steps_total",
		Help:      "Total number of post-processing steps by step and result.",
	}, []string{"step", "result"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		TasksStartedTotal,
		TasksFinishedTotal,
		ActiveTasks,
		StageDuration,
		KeyRequestsTotal,
		EventsIngestedTotal,
		PostProcessStepsTotal,
	)
}
