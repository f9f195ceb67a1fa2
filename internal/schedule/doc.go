// Package schedule computes the per-iteration training schedule: the
// learning rate, the number of parallel jobs, the archive position, whether
// an iteration averages its candidates or picks the best one, and the set of
// trailing iterations whose models are combined into the final model.
//
// Everything here is pure integer and float math over run-wide constants, so
// the same inputs produce the same schedule on every machine.
package schedule
