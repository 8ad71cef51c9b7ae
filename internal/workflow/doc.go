// Package workflow implements the step-sequenced workflow engine: named,
// predefined sequences of steps executed in definition order with
// conditional early termination and a bounded in-memory execution history.
//
// # Step Dispatch
//
// Each step is a tagged variant: either a call into the service registry
// (StepService) or a named built-in pure action (StepInternal). Dispatch
// happens through a single switch on the step kind.
//
// # Failure Semantics
//
// A failing step is captured in its StepResult and execution continues;
// the execution record itself communicates partial failure. Only
// structural faults (unknown workflow id, malformed step, unresolvable
// action) abort the execution, marking it failed while preserving every
// previously recorded StepResult. A false step condition stops further
// steps and the execution completes.
//
// # Conditions
//
// Step conditions are pure functions of (condition name, step result,
// workflow parameters). Unrecognized condition names default to continue;
// the StrictConditions option turns them into fatal faults instead.
//
// # History
//
// Every execution is retained in an in-memory history for a bounded
// retention window and pruned by the maintenance loop.
package workflow
