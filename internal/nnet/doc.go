// Package nnet names the model files of an experiment directory and builds the
// averaging, best-pick and final combination requests for the launcher.
//
// Models of iteration i live at <dir>/<i>.mdl when they wrap an acoustic
// model container and at <dir>/<i>.raw otherwise. Candidates trained in
// parallel for iteration i are always bare networks at <dir>/<i>.<n>.raw.
package nnet
