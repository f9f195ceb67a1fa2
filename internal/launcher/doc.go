// Package launcher dispatches external training commands.
//
// A Job names a shell command and its log file. When the job carries a Range,
// every literal JOB token in the command and log path is replaced by each
// index in the range and the resulting sub-jobs run concurrently. Local runs
// sub-jobs through sh on this machine; Queue hands the whole job to a grid
// launcher script such as queue.pl or run.pl, which performs the expansion
// itself. Background tracks asynchronous diagnostic jobs and cancels the run
// when one of them fails.
package launcher
