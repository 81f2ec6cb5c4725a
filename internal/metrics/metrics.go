package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var inferenceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "inference_latency_seconds",
	Help:    "Latency of inference model calls.",
	Buckets: []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300},
}, []string{"model", "status"})

var pillarOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pillar_reviews_total",
	Help: "Pillar reviews by pillar and terminal status.",
}, []string{"pillar", "status"})

var extractionDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "extraction_degradations_total",
	Help: "Extractions that fell back to metadata-only content, by stage.",
}, []string{"stage"})

var visionFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vision_model_fallbacks_total",
	Help: "Vision analyses served by a substitute model after rasterization failed.",
}, []string{"requested_model", "fallback_model"})

var runCost = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "review_run_cost_usd_total",
	Help: "Accumulated review run cost in USD by category.",
}, []string{"category"})

var runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "review_run_duration_seconds",
	Help:    "Total time spent in executeAll.",
	Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
}, []string{"status"})

func ObserveInference(model, status string, elapsed time.Duration) {
	inferenceLatency.WithLabelValues(model, status).Observe(elapsed.Seconds())
}

func CountPillarOutcome(pillar, status string) {
	pillarOutcomes.WithLabelValues(pillar, status).Inc()
}

func CountExtractionDegradation(stage string) {
	extractionDegradations.WithLabelValues(stage).Inc()
}

func CountVisionFallback(requestedModel, fallbackModel string) {
	visionFallbacks.WithLabelValues(requestedModel, fallbackModel).Inc()
}

func AddRunCost(category string, amount float64) {
	if amount > 0 {
		runCost.WithLabelValues(category).Add(amount)
	}
}

func ObserveRun(status string, elapsed time.Duration) {
	runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}
