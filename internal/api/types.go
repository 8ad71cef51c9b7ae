package api

import "time"

// ServiceKind marks services that speak a protocol incompatible with the
// generic tool-discovery endpoint. The registry skips GET /tools for such
// services; their tools are invoked through a different protocol that is
// not proxied here.
type ServiceKind string

const (
	// KindHTTP is the default kind: the service exposes the generic
	// health/tools/execute contract.
	KindHTTP ServiceKind = "http"

	// KindMCP marks MCP-protocol services. ListTools returns an empty
	// catalog for these.
	KindMCP ServiceKind = "mcp"
)

// ServiceDescriptor is the static configuration of one backend service.
// Descriptors are immutable after registration.
type ServiceDescriptor struct {
	// ID is the unique registry key for the service.
	ID string `json:"id" yaml:"id"`

	// DisplayName is the human-readable name used in listings and events.
	DisplayName string `json:"displayName" yaml:"displayName"`

	// BaseURL is the root endpoint of the service, without trailing slash.
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// HealthPath is the path of the health endpoint, e.g. "/health".
	HealthPath string `json:"healthPath" yaml:"healthPath"`

	// Kind marks services with an incompatible tool-discovery protocol.
	// Empty means KindHTTP.
	Kind ServiceKind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// LongRunningTools lists tool names that get the extended invocation
	// timeout (batch jobs, backups).
	LongRunningTools []string `json:"longRunningTools,omitempty" yaml:"longRunningTools,omitempty"`
}

// IsLongRunning reports whether the named tool is marked for the extended
// invocation timeout.
func (d ServiceDescriptor) IsLongRunning(tool string) bool {
	for _, t := range d.LongRunningTools {
		if t == tool {
			return true
		}
	}
	return false
}

// ServiceStatus is the runtime reachability state of a service.
type ServiceStatus string

const (
	// StatusDiscovering means the first health check has not completed yet.
	StatusDiscovering ServiceStatus = "discovering"

	// StatusRunning means the most recent health check succeeded.
	StatusRunning ServiceStatus = "running"

	// StatusUnreachable means the most recent health check failed.
	StatusUnreachable ServiceStatus = "unreachable"

	// StatusUnavailable means the service was stopped by an operator and is
	// excluded from health sweeps until started again.
	StatusUnavailable ServiceStatus = "unavailable"
)

// ServiceRecord is the runtime state the registry tracks for one descriptor.
// It is owned exclusively by the registry and mutated only by discovery and
// health-check operations.
type ServiceRecord struct {
	Descriptor ServiceDescriptor `json:"descriptor"`

	Status ServiceStatus `json:"status"`

	// LastHealthCheckAt is nil until the first health check completes.
	LastHealthCheckAt *time.Time `json:"lastHealthCheckAt,omitempty"`

	// LastHealthPayload is the opaque body of the last successful health
	// response.
	LastHealthPayload map[string]interface{} `json:"lastHealthPayload,omitempty"`

	// LastError is the message of the last failed health check, empty after
	// a successful check.
	LastError string `json:"lastError,omitempty"`

	StartedAt time.Time `json:"startedAt"`
}

// ToolDescriptor describes one tool a backend service exposes.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

// InvokeResult is the outcome of one proxied tool invocation, including the
// metadata callers need to correlate it.
type InvokeResult struct {
	ServiceID string                 `json:"serviceId"`
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    interface{}            `json:"result"`
	Timestamp time.Time              `json:"timestamp"`
}

// StepKind distinguishes internal pure actions from calls into the service
// registry.
type StepKind string

const (
	// StepInternal dispatches to a named built-in action inside the engine.
	StepInternal StepKind = "internal"

	// StepService proxies the step through the service registry.
	StepService StepKind = "service"
)

// WorkflowStep is one step of a workflow definition.
type WorkflowStep struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	Kind StepKind `json:"kind" yaml:"kind"`

	// ServiceID and Tool are set for StepService steps.
	ServiceID string `json:"serviceId,omitempty" yaml:"serviceId,omitempty"`
	Tool      string `json:"tool,omitempty" yaml:"tool,omitempty"`

	// Action names the built-in handler for StepInternal steps.
	Action string `json:"action,omitempty" yaml:"action,omitempty"`

	// Args are passed to the tool or action. String values of the form
	// "{param}" are substituted from the execution parameters.
	Args map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`

	// Condition names a continuation predicate evaluated against this
	// step's result. When it evaluates false, no later steps run.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// WorkflowDefinition is a static, ordered sequence of steps loaded at
// startup. Definitions are immutable.
type WorkflowDefinition struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []WorkflowStep `json:"steps" yaml:"steps"`

	// Defaults supplies parameter values applied when the caller omits
	// them. The token "{now}" in a default expands to a timestamp.
	Defaults map[string]interface{} `json:"defaults,omitempty" yaml:"defaults,omitempty"`
}

// WorkflowSummary is the listing view of a definition.
type WorkflowSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StepCount   int    `json:"stepCount"`
}

// ExecutionStatus is the lifecycle state of one workflow execution.
type ExecutionStatus string

const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// StepStatus is the outcome of one executed step.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepResult records the outcome of one step within an execution. The step
// list of an execution is append-only and ordered by execution order.
type StepResult struct {
	StepID    string      `json:"stepId"`
	Name      string      `json:"name"`
	Status    StepStatus  `json:"status"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ExecutionResult is the final outcome of a workflow execution.
type ExecutionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WorkflowExecution is one run of a workflow definition. An execution
// transitions at most once from running to a terminal status and is never
// mutated afterwards.
type WorkflowExecution struct {
	ExecutionID string           `json:"executionId"`
	WorkflowID  string           `json:"workflowId"`
	Status      ExecutionStatus  `json:"status"`
	StartedAt   time.Time        `json:"startTime"`
	CompletedAt *time.Time       `json:"endTime,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
	Steps       []StepResult     `json:"steps"`
	Result      *ExecutionResult `json:"result,omitempty"`
}

// Event is the envelope delivered to event bus subscribers.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Event types published by the core.
const (
	// EventHealthSweep carries aggregate reachable/unreachable counts after
	// a periodic health sweep.
	EventHealthSweep = "health_sweep"

	// EventServiceStatus carries a single service's status transition.
	EventServiceStatus = "service_status"

	// EventWorkflowCompleted carries execution id, status and a result
	// summary when an execution reaches a terminal state.
	EventWorkflowCompleted = "workflow_completed"
)
