// Package preflight checks that ragchat can run with a given configuration
// before the stores are opened: the data directory is writable and has
// room, the process may open enough files, no other process holds the
// data lock, and the configured providers have credentials.
//
//	checker := preflight.New(cfg)
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // refuse to start
//	}
package preflight
