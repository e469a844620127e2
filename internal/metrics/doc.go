// Package metrics provides observability hooks for script loads and target runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection never needs nil checks at call sites:
//
//	exec := runner.NewExecutor(cfg, sink, runner.WithRecorder(metrics.NoopRecorder{}))
//
// When the daemon is started, a PrometheusRecorder registered on a private
// registry is injected instead and served through HTTPHandler on /metrics.
package metrics
