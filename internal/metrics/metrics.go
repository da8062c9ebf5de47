// Package metrics exposes the ambient Prometheus surface: pipeline stage
// throughput, LLM call latency/failures, vote ingestion counts, and
// WebSocket subscriber count. It follows the same promauto-registered,
// package-level-vars shape as pkg/infra/metrics/prometheus.go, scoped
// down to this engine's own domain rather than carrying over an
// unrelated metric catalog.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StageSubmissionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_pipeline_stage_submissions_total",
			Help: "Total submissions processed per pipeline stage, by outcome",
		},
		[]string{"stage", "outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_llm_call_duration_seconds",
			Help:    "LLM completion call latency",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"caller"},
	)

	LLMCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_llm_call_failures_total",
			Help: "Total LLM completion calls that ended in an error, after any retries",
		},
		[]string{"caller"},
	)

	VoteIngestionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judge_vote_ingestion_total",
			Help: "Total vote/donation transactions ingested, by outcome",
		},
		[]string{"outcome"},
	)

	PrizePoolSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "judge_prize_pool_ws_subscribers",
			Help: "Current number of /ws/prize-pool WebSocket subscribers",
		},
	)
)

// RecordStage increments the per-stage outcome counter. outcome is
// "succeeded" or "failed".
func RecordStage(stage, outcome string) {
	StageSubmissionsProcessed.WithLabelValues(stage, outcome).Inc()
}

// RecordLLMCall observes a completed LLM call's latency and, on failure,
// increments the failure counter for the same caller label.
func RecordLLMCall(caller string, duration time.Duration, failed bool) {
	LLMCallDuration.WithLabelValues(caller).Observe(duration.Seconds())
	if failed {
		LLMCallFailures.WithLabelValues(caller).Inc()
	}
}

// RecordVoteIngestion increments the ingestion counter for one processed
// transaction. outcome is votes.Outcome's string form (e.g. "vote",
// "vote_with_overflow", "donation", "duplicate") or "error" when
// processing failed.
func RecordVoteIngestion(outcome string) {
	VoteIngestionTotal.WithLabelValues(outcome).Inc()
}

// Handler serves the Prometheus exposition format at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
