// Package main hosts the nnetctl CLI entrypoint and command graph.
//
// The Cobra command tree exposes the pure helpers (size specs, schedule,
// selection, priors) as inspection commands and drives the training
// controller through `nnetctl run`. Configuration resolution and logger
// construction live in commandContext so subcommands only wire flags to the
// internal packages.
package main
