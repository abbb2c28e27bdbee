// Package preflight provides system validation and pre-flight checks
// to ensure folderd can index a folder successfully before it starts.
//
// The package validates:
//   - Disk space availability (minimum 100MB)
//   - Memory availability (minimum 1GB)
//   - Write permissions in project directory
//   - File descriptor limits (minimum 1024)
//   - Remote embedding host reachability, when a "remote:" model is configured
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, "/path/to/folder", remoteHost, modelID)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
