// Package egs reads the metadata of a training-examples directory and checks
// it against the experiment.
//
// The examples themselves are produced elsewhere; this package only consumes
// the small info/ files written next to them, copies the feature-pipeline
// property files into the experiment directory, and reads the configs/vars
// file written by the network configuration step.
package egs
