package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_ingested_total",
		Help: "The total number of ingested messages",
	}, []string{"channel"})

	CollapseRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_collapse_removed_total",
		Help: "Near-duplicate messages removed before semantic judgment",
	})

	JudgeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_judge_requests_total",
		Help: "Semantic judgment calls by kind and status",
	}, []string{"kind", "status"})

	JudgeFailOpen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_judge_fail_open_total",
		Help: "Batches accepted wholesale after a failed judgment",
	}, []string{"kind", "reason"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	StageMessages = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_stage_messages",
		Help: "Number of messages produced by the last run of a stage",
	}, []string{"stage"})

	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_sent_total",
		Help: "Relayed messages by route and status",
	}, []string{"route", "status"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run",
	})
)
