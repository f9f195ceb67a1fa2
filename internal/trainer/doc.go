// Package trainer drives a complete training run.
//
// Controller.Run takes the experiment lock, verifies the egs directory,
// builds the iteration schedule and then executes the iterations strictly in
// sequence. Each iteration fans its train jobs out through the launcher,
// waits for all of them, ranks the candidates, and either averages the
// accepted ones (optionally shrunk) or copies the best one into the next
// model. Diagnostics run in the background and a failure there stops the run
// at the next poll. After the last iteration the combination window is merged
// into the final model and the directory is optionally cleaned.
//
// Completed iterations are recorded in the ledger so an interrupted run
// resumes after the last recorded iteration.
package trainer
