// Package pipeline drives accounts through the credential check.
//
// Each account becomes a model.Check that passes through a sequence of steps:
// resolution of the connection parameters, password collection, the probe
// itself and optional recording in the history database. A step that reaches
// a final outcome finishes or skips the check, and later steps leave a done
// check alone except for recording.
//
// The BatchProcessor runs the steps for a whole run. With a concurrency of
// one it is strictly sequential (prompt, probe, report, next account). With a
// higher concurrency every password is collected up front and the probes run
// on an errgroup with a bounded number of goroutines.
package pipeline
