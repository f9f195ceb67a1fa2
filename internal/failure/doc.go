// Package failure defines the error taxonomy shared by the training
// controller.
//
// Every error raised by a controller component is tagged with one of the
// exported sentinel markers so callers can classify it with errors.Is:
// grammar violations, schedule preconditions, measurement parse failures,
// egs metadata mismatches, missing state, launch failures, and configuration
// problems. Fatal reports whether a classified error must abort the run.
package failure
