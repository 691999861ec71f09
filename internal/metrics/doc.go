// Package metrics provides observability hooks for pipeline runs.
//
// Components receive a Recorder and default to NoopRecorder, so metrics stay
// optional:
//
//	orch := pipeline.New(cfg, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The Prometheus implementation can be scraped over HTTP (watch mode) or
// written to a node_exporter textfile after a one-shot build.
package metrics
