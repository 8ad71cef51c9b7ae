package api

import (
	"errors"
	"fmt"
)

// UnknownServiceError indicates an operation referenced a service id with no
// registered descriptor.
type UnknownServiceError struct {
	ServiceID string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("service %s is not registered", e.ServiceID)
}

// NewUnknownServiceError creates an UnknownServiceError for the given id.
func NewUnknownServiceError(serviceID string) *UnknownServiceError {
	return &UnknownServiceError{ServiceID: serviceID}
}

// IsUnknownService checks if an error is or wraps an UnknownServiceError.
func IsUnknownService(err error) bool {
	var e *UnknownServiceError
	return errors.As(err, &e)
}

// ServiceUnreachableError indicates health checks failed after the retry
// budget was exhausted. It carries the last underlying transport error so
// callers can diagnose the failure without consulting logs.
type ServiceUnreachableError struct {
	ServiceID string
	LastErr   error
}

func (e *ServiceUnreachableError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("service %s is unreachable: %v", e.ServiceID, e.LastErr)
	}
	return fmt.Sprintf("service %s is unreachable", e.ServiceID)
}

func (e *ServiceUnreachableError) Unwrap() error {
	return e.LastErr
}

// NewServiceUnreachableError creates a ServiceUnreachableError carrying the
// last transport error.
func NewServiceUnreachableError(serviceID string, lastErr error) *ServiceUnreachableError {
	return &ServiceUnreachableError{ServiceID: serviceID, LastErr: lastErr}
}

// IsServiceUnreachable checks if an error is or wraps a
// ServiceUnreachableError.
func IsServiceUnreachable(err error) bool {
	var e *ServiceUnreachableError
	return errors.As(err, &e)
}

// UnknownWorkflowError indicates a referenced workflow id is not present in
// the static definitions.
type UnknownWorkflowError struct {
	WorkflowID string
}

func (e *UnknownWorkflowError) Error() string {
	return fmt.Sprintf("workflow %s is not defined", e.WorkflowID)
}

// NewUnknownWorkflowError creates an UnknownWorkflowError for the given id.
func NewUnknownWorkflowError(workflowID string) *UnknownWorkflowError {
	return &UnknownWorkflowError{WorkflowID: workflowID}
}

// IsUnknownWorkflow checks if an error is or wraps an UnknownWorkflowError.
func IsUnknownWorkflow(err error) bool {
	var e *UnknownWorkflowError
	return errors.As(err, &e)
}

// UnknownToolError indicates a referenced tool is not exposed by the target
// service.
type UnknownToolError struct {
	ServiceID string
	Tool      string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %s is not available on service %s", e.Tool, e.ServiceID)
}

// NewUnknownToolError creates an UnknownToolError for the given service and
// tool.
func NewUnknownToolError(serviceID, tool string) *UnknownToolError {
	return &UnknownToolError{ServiceID: serviceID, Tool: tool}
}

// IsUnknownTool checks if an error is or wraps an UnknownToolError.
func IsUnknownTool(err error) bool {
	var e *UnknownToolError
	return errors.As(err, &e)
}

// WorkflowFatalError indicates an error outside any single step's handling
// (malformed step definition, unresolvable internal action) that aborts the
// whole execution.
type WorkflowFatalError struct {
	WorkflowID string
	Reason     string
	Err        error
}

func (e *WorkflowFatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow %s aborted: %s: %v", e.WorkflowID, e.Reason, e.Err)
	}
	return fmt.Sprintf("workflow %s aborted: %s", e.WorkflowID, e.Reason)
}

func (e *WorkflowFatalError) Unwrap() error {
	return e.Err
}

// NewWorkflowFatalError creates a WorkflowFatalError for the given workflow.
func NewWorkflowFatalError(workflowID, reason string, err error) *WorkflowFatalError {
	return &WorkflowFatalError{WorkflowID: workflowID, Reason: reason, Err: err}
}

// IsWorkflowFatal checks if an error is or wraps a WorkflowFatalError.
func IsWorkflowFatal(err error) bool {
	var e *WorkflowFatalError
	return errors.As(err, &e)
}
