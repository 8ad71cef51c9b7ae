// Package api defines the shared data model and error taxonomy for the
// infraops core: service descriptors and runtime records, workflow
// definitions and executions, tool invocation results, and event envelopes.
//
// The package is imported by every component (registry, workflow engine,
// event bus, scheduler, CLI) and deliberately contains no behavior beyond
// constructors and error predicates, so that components depend on a common
// vocabulary rather than on each other.
//
// # Error Handling
//
// All caller-facing failures use typed errors with errors.As-based
// predicates:
//
//	result, err := reg.Invoke(ctx, "github", "create_issue", args)
//	if api.IsUnknownService(err) {
//	    // the service id was never registered
//	}
//	if api.IsServiceUnreachable(err) {
//	    // health checks exhausted their retry budget
//	}
//
// Every error message includes enough structured detail (service id, tool
// name, last transport error) to diagnose the failure without consulting
// logs.
package api
