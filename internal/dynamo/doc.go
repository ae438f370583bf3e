// Package dynamo provides the core primitives shared by the attractor search.
//
// The package defines the small set of types every other package agrees on:
//
//   - [State]: a point of an iterated map
//   - [Candidate]: a discovered system kept in the best set
//   - [NonChaotic]: the sentinel exponent for diverged, collapsed or
//     indeterminate runs
//
// # Errors
//
// Numerical code never returns errors. Only configuration validation and
// persistence report failures, using the sentinels in errors.go:
//
//	if errors.Is(err, dynamo.ErrCorruptStore) {
//	    // systems.json exists but could not be decoded
//	}
package dynamo
