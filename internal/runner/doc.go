// Package runner launches the external build tool for one target at a time,
// streams its output line by line to a console sink and supports cooperative
// cancellation.
//
// An Executor holds at most one active Run. Start registers the run and hands
// it to a worker goroutine; the caller never blocks. Each run resolves a
// single-shot completion future before the executor becomes idle again.
//
// Cancellation is a flag checked once per output line. A child that stays
// silent cannot be preempted, since the worker is blocked reading its output.
package runner
