// Package sizespec parses, validates, and halves the compact size strings
// used to configure training: minibatch-size specs and chunk widths.
//
// A minibatch-size spec is either a flat range set such as "128",
// "128,256" or "64:128,256", or a rule list keyed by example length such as
// "128=64:128/256=32,64". A chunk width is a comma-separated list of
// positive integers whose first element is the principal width.
//
// Values are parsed once into RangeSet, MinibatchSize and ChunkWidth and are
// immutable afterwards; Halve returns a new value. The string-level helpers
// (ValidateMinibatchSizeStr, HalveMinibatchSizeStr, ...) wrap the parsers for
// call sites that only carry text.
package sizespec
