package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "assetrev"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration  *prom.HistogramVec
	runDuration    prom.Histogram
	stageResults   *prom.CounterVec
	runOutcome     *prom.CounterVec
	files          *prom.CounterVec
	references     *prom.CounterVec
	uploadDuration *prom.HistogramVec
	uploadRetries  *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   prom.DefBuckets,
		}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"}),
		files: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "files_revisioned_total",
			Help:      "Files written to the distribution tree by asset class",
		}, []string{"class"}),
		references: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "references_total",
			Help:      "References seen while rewriting, by class and result",
		}, []string{"class", "result"}),
		uploadDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Duration of CDN uploads including retries",
			Buckets:   prom.DefBuckets,
		}, []string{"prefix", "result"}),
		uploadRetries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "upload_retries_total",
			Help:      "CDN upload retries after transient failures",
		}, []string{"prefix"}),
	}
	reg.MustRegister(pr.stageDuration, pr.runDuration, pr.stageResults, pr.runOutcome,
		pr.files, pr.references, pr.uploadDuration, pr.uploadRetries)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddFiles(class string, n int) {
	if p == nil || p.files == nil {
		return
	}
	p.files.WithLabelValues(class).Add(float64(n))
}

func (p *PrometheusRecorder) AddReferences(class string, rewritten, unmapped int) {
	if p == nil || p.references == nil {
		return
	}
	p.references.WithLabelValues(class, "rewritten").Add(float64(rewritten))
	p.references.WithLabelValues(class, "unmapped").Add(float64(unmapped))
}

func (p *PrometheusRecorder) ObserveUpload(prefix string, d time.Duration, success bool) {
	if p == nil || p.uploadDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.uploadDuration.WithLabelValues(prefix, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncUploadRetry(prefix string) {
	if p == nil || p.uploadRetries == nil {
		return
	}
	p.uploadRetries.WithLabelValues(prefix).Inc()
}
