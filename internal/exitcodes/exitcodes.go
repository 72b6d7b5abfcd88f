// Package exitcodes defines the process exit codes used by the CLI.
package exitcodes

const (
	// OK means the command completed fully.
	OK = 0
	// Partial means the command completed but some components failed or
	// were skipped.
	Partial = 1
	// Failure means the command could not complete.
	Failure = 2
	// UsageError means the input (arguments, manifest) was invalid.
	UsageError = 3
	// NotFound means a requested package or project does not exist.
	NotFound = 4
)
