package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	GenerateRequestCount          prometheus.Counter
	GenerateRequestDurationSec    *prometheus.SummaryVec
	JobsInFlight                  prometheus.Gauge
	PipelineStageDurationSec      *prometheus.SummaryVec
	PipelineResults               *prometheus.CounterVec
	LLMTokensUsed                 *prometheus.CounterVec
	FrameCaptionResults           *prometheus.CounterVec
	RenderSegmentDurationSec      prometheus.Histogram
	ObjectStoreUploadedBytesTotal prometheus.Counter
	WebhookResults                *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		GenerateRequestCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ai_edit_generate_request_count",
			Help: "The total number of requests to /api/ai-edit/generate",
		}),
		GenerateRequestDurationSec: promauto.NewSummaryVec(prometheus.SummaryOpts{
			Name: "ai_edit_generate_request_duration_seconds",
			Help: "The latency of /api/ai-edit/generate requests, broken up by success and status code",
		}, []string{"success", "status_code"}),
		JobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_jobs_in_flight",
			Help: "The number of edit pipeline jobs currently running",
		}),
		PipelineStageDurationSec: promauto.NewSummaryVec(prometheus.SummaryOpts{
			Name: "pipeline_stage_duration_seconds",
			Help: "The time each pipeline stage takes to run, broken up by stage and success",
		}, []string{"stage", "success"}),
		PipelineResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_results",
			Help: "The total number of finished pipeline jobs, broken up by kind and success",
		}, []string{"kind", "success"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_tokens_used_total",
			Help: "The total number of LLM tokens consumed, broken up by direction",
		}, []string{"direction"}),
		FrameCaptionResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_caption_results",
			Help: "The total number of frame caption attempts, broken up by result",
		}, []string{"result"}),
		RenderSegmentDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "render_segment_duration_seconds",
			Help:    "Time taken to extract and re-encode one EDL segment",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		ObjectStoreUploadedBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "object_store_uploaded_bytes_total",
			Help: "The total number of bytes uploaded to object storage",
		}),
		WebhookResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_results",
			Help: "The total number of webhook deliveries, broken up by result",
		}, []string{"result"}),
	}
}
