// Package ledger persists training runs and completed iterations in a SQLite
// database inside the experiment directory.
//
// The controller records each iteration once its next model exists, so the
// highest recorded iteration is the resume point after an interruption. The
// history command renders the same rows.
package ledger
