// Package preflight provides readiness checks for the directories and
// external programs a training run depends on.
//
// The run command calls RunAll and CheckSystemDeps before taking the
// experiment lock so a doomed run fails before any job is launched. Each
// check returns a Result rather than an error so the CLI can render all of
// them at once.
package preflight
