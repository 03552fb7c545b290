// Package metrics registers the Prometheus collectors exported by the
// panelcast daemon on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels stay bounded: no pipeline ids or chapter names.
var (
	// PanelRenderTotal counts panel render outcomes by result and failure reason.
	PanelRenderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelcast_panel_render_total",
		Help: "Total number of panel renders, by outcome and failure reason.",
	}, []string{"outcome", "reason"})

	// PanelRenderSeconds observes wall time per panel render.
	PanelRenderSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panelcast_panel_render_seconds",
		Help:    "Wall time spent rendering one panel clip, by codec.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"codec"})

	// ChapterAssembleTotal counts assembly results.
	ChapterAssembleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelcast_chapter_assemble_total",
		Help: "Total number of chapter assemblies, by result (assembled, empty, failed).",
	}, []string{"result"})

	// StageJobsTotal counts stage jobs handled by workers.
	StageJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "panelcast_stage_jobs_total",
		Help: "Total number of stage jobs processed, by stage and result.",
	}, []string{"stage", "result"})

	// QueueDepth tracks jobs waiting per stage.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "panelcast_queue_depth",
		Help: "Jobs waiting in each stage queue.",
	}, []string{"stage"})

	// EncoderSelected marks the codec chosen for this host.
	EncoderSelected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "panelcast_encoder_selected",
		Help: "Set to 1 for the video codec selected on this host.",
	}, []string{"codec", "vendor"})
)

// ObservePanel records one panel outcome.
func ObservePanel(outcome, reason string) {
	PanelRenderTotal.WithLabelValues(outcome, reason).Inc()
}

// ObserveStageJob records one processed stage job.
func ObserveStageJob(stage, result string) {
	StageJobsTotal.WithLabelValues(stage, result).Inc()
}

// ObserveAssemble records one assembly result.
func ObserveAssemble(result string) {
	ChapterAssembleTotal.WithLabelValues(result).Inc()
}

// SetQueueDepth publishes the waiting job count for stage.
func SetQueueDepth(stage string, depth int64) {
	QueueDepth.WithLabelValues(stage).Set(float64(depth))
}

// SetEncoder publishes the selected codec.
func SetEncoder(codec, vendor string) {
	EncoderSelected.Reset()
	EncoderSelected.WithLabelValues(codec, vendor).Set(1)
}
