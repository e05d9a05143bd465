// Package preflight checks that a journal can be indexed and served before
// anything is loaded: the directory and its entries, write access for the
// snapshots, free disk space, file descriptor limits, the ownership lock,
// and the embedding provider when one is configured.
//
//	checker := preflight.New(preflight.WithEmbedder(e))
//	results := checker.RunAll(ctx, "/path/to/journal")
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
