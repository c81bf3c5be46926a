// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	Answers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_answers_total",
			Help: "Answers composed, by source",
		},
		[]string{"source", "language"},
	)

	AnswerConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helpdesk_answer_confidence",
			Help:    "Confidence of composed answers",
			Buckets: []float64{0, 20, 45, 60, 75, 85, 100},
		},
		[]string{"source"},
	)

	FallbackRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_fallback_requests_total",
			Help: "Generative fallback attempts, by outcome",
		},
		[]string{"outcome"},
	)

	RuleEvaluations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_rule_evaluations_total",
			Help: "Proactive rule evaluations, by outcome",
		},
		[]string{"outcome"},
	)

	FeedbackRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helpdesk_feedback_total",
			Help: "Feedback recorded, by rating",
		},
		[]string{"rating"},
	)
)
