// Package metrics provides observability hooks for build cycles.
//
// It implements the Null Object pattern so components never nil-check their
// recorder: everything takes a Recorder, and callers that do not configure
// monitoring inject NoopRecorder, whose methods compile down to nothing.
// When monitoring is configured, PrometheusRecorder registers collectors on
// a caller-supplied registry and the watch command serves them over HTTP.
//
// Components receive a Recorder through dependency injection:
//
//	builder := site.NewBuilder(cfg, reader, engine, site.WithRecorder(rec))
//
// Adding a metric means extending the Recorder interface, NoopRecorder, and
// PrometheusRecorder together; the compiler then points at every site that
// needs updating.
package metrics
