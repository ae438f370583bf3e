// Package search drives the attractor search and owns the best set.
//
// A [Selector] repeatedly runs the trajectory engine, pre-filters results by
// the exponent threshold and admits worthy systems into a bounded set kept
// sorted by exponent, descending. Admission is serialised by a mutex so the
// worthiness check, insert and eviction happen atomically; everything before
// it runs without shared state, which is what [Selector.Search] exploits to
// spread attempts over several goroutines.
//
// On every admission the selector calls its [Persister] with the full set and
// its [Renderer] with the new candidate. Hook failures are logged and counted
// but never stop the search.
package search
