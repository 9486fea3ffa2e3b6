package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat pipeline requests by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	ChatDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_request_duration_seconds",
			Help:    "End-to-end pipeline latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	IntentClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_classifications_total",
			Help: "Total number of classified messages by strategy and intent",
		},
		[]string{"strategy", "intent"},
	)

	IntentConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intent_confidence",
			Help:    "Distribution of classifier confidence",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"strategy"},
	)

	IntentStrategyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intent_strategy_errors_total",
			Help: "Strategy failures absorbed into the fallback intent",
		},
		[]string{"strategy"},
	)

	TemplateResolutionTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_resolution_tier_total",
			Help: "Which fallback tier produced the template",
		},
		[]string{"tier"},
	)

	QuickReplyResolutionTier = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quick_reply_resolution_tier_total",
			Help: "Which fallback tier produced the quick replies",
		},
		[]string{"tier"},
	)

	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profile_cache_lookups_total",
			Help: "Profile cache hits and misses",
		},
		[]string{"result"},
	)

	Transcriptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptions_total",
			Help: "Total number of transcriptions by outcome",
		},
		[]string{"outcome"},
	)

	TranscriptionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcription_duration_seconds",
			Help:    "Decode plus recognition time in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	RecognizersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "speech_recognizers_busy",
			Help: "Number of recognizer slots currently checked out",
		},
	)

	ConversationLogDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_log_dropped_total",
			Help: "Conversation log entries dropped because the queue was full",
		},
	)

	ConversationLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_log_failures_total",
			Help: "Conversation log writes that failed at the sink",
		},
	)

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
)
