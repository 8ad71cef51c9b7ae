package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"infraops/internal/api"
	"infraops/pkg/logging"
)

// ToolInvoker is what the engine needs from the service registry: execute a
// named tool on a named service.
type ToolInvoker interface {
	Invoke(ctx context.Context, serviceID, tool string, args map[string]interface{}) (*api.InvokeResult, error)
}

// EventPublisher receives workflow completion events. Publishing never
// blocks execution progress.
type EventPublisher interface {
	Publish(event api.Event)
}

// Config holds the configuration for an Engine.
type Config struct {
	// Invoker proxies service steps. Required.
	Invoker ToolInvoker

	// Publisher receives completion events. Optional.
	Publisher EventPublisher

	// StrictConditions makes an unrecognized condition name a fatal fault
	// instead of defaulting to continue.
	StrictConditions bool
}

// Engine executes named, predefined step sequences against the service
// registry and records every execution in its history. All methods are safe
// for concurrent use; steps within one execution run strictly in definition
// order.
type Engine struct {
	mu          sync.RWMutex
	definitions map[string]api.WorkflowDefinition
	order       []string

	invoker    ToolInvoker
	publisher  EventPublisher
	strict     bool
	history    *History
	conditions map[string]condition
	actions    map[string]InternalAction

	execCounter atomic.Int64
}

// New creates a workflow engine with the built-in conditions and actions
// registered.
func New(cfg Config) *Engine {
	return &Engine{
		definitions: make(map[string]api.WorkflowDefinition),
		invoker:     cfg.Invoker,
		publisher:   cfg.Publisher,
		strict:      cfg.StrictConditions,
		history:     NewHistory(),
		conditions:  builtinConditions(),
		actions:     builtinActions(),
	}
}

// RegisterDefinition validates and adds a workflow definition. Definitions
// are immutable once registered; re-registering an id replaces it.
func (e *Engine) RegisterDefinition(def api.WorkflowDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("cannot register workflow with empty id")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", def.ID)
	}
	for _, step := range def.Steps {
		switch step.Kind {
		case api.StepService:
			if step.ServiceID == "" || step.Tool == "" {
				return fmt.Errorf("workflow %s step %s: service steps need serviceId and tool", def.ID, step.ID)
			}
		case api.StepInternal:
			if step.Action == "" {
				return fmt.Errorf("workflow %s step %s: internal steps need an action", def.ID, step.ID)
			}
		default:
			return fmt.Errorf("workflow %s step %s: unknown step kind %q", def.ID, step.ID, step.Kind)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.definitions[def.ID]; !exists {
		e.order = append(e.order, def.ID)
	}
	e.definitions[def.ID] = def
	logging.Debug("Workflow", "Registered workflow %s with %d steps", def.ID, len(def.Steps))
	return nil
}

// RegisterAction adds a named internal action available to StepInternal
// steps.
func (e *Engine) RegisterAction(name string, action InternalAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actions[name] = action
}

// List returns summaries of every registered workflow in registration
// order.
func (e *Engine) List() []api.WorkflowSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	summaries := make([]api.WorkflowSummary, 0, len(e.order))
	for _, id := range e.order {
		def := e.definitions[id]
		summaries = append(summaries, api.WorkflowSummary{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			StepCount:   len(def.Steps),
		})
	}
	return summaries
}

// Execute runs a workflow to completion. An unknown workflow id fails
// before any execution record is created. Step failures are captured in
// their StepResult and execution continues; a false step condition stops
// further steps with the execution still completed; only structural faults
// mark the execution failed, preserving every recorded step.
func (e *Engine) Execute(ctx context.Context, workflowID string, params map[string]interface{}) (api.WorkflowExecution, error) {
	e.mu.RLock()
	def, exists := e.definitions[workflowID]
	e.mu.RUnlock()
	if !exists {
		return api.WorkflowExecution{}, api.NewUnknownWorkflowError(workflowID)
	}

	params = applyDefaults(params, def.Defaults)

	execution := &api.WorkflowExecution{
		ExecutionID: fmt.Sprintf("exec-%d", e.execCounter.Add(1)),
		WorkflowID:  def.ID,
		Status:      api.ExecutionRunning,
		StartedAt:   time.Now(),
		Parameters:  params,
		Steps:       []api.StepResult{},
	}
	e.history.Add(*execution)
	logging.Info("Workflow", "Starting execution %s of workflow %s", execution.ExecutionID, def.ID)

	var lastResult interface{}
	var stopMessage string
	failedSteps := 0

steps:
	for _, step := range def.Steps {
		args, err := resolveArgs(step.Args, params)
		if err != nil {
			return e.fail(execution, api.NewWorkflowFatalError(def.ID, fmt.Sprintf("step %s: argument resolution", step.ID), err))
		}

		var stepResult interface{}
		var stepErr error
		switch step.Kind {
		case api.StepService:
			var invocation *api.InvokeResult
			invocation, stepErr = e.invoker.Invoke(ctx, step.ServiceID, step.Tool, args)
			if stepErr == nil {
				stepResult = invocation.Result
			}
		case api.StepInternal:
			e.mu.RLock()
			action, known := e.actions[step.Action]
			e.mu.RUnlock()
			if !known {
				return e.fail(execution, api.NewWorkflowFatalError(def.ID, fmt.Sprintf("step %s references unknown action %s", step.ID, step.Action), nil))
			}
			stepResult, stepErr = action(ctx, e.invoker, execution, args)
		default:
			return e.fail(execution, api.NewWorkflowFatalError(def.ID, fmt.Sprintf("step %s has unknown kind %q", step.ID, step.Kind), nil))
		}

		record := api.StepResult{
			StepID:    step.ID,
			Name:      step.Name,
			Status:    api.StepCompleted,
			Result:    stepResult,
			Timestamp: time.Now(),
		}
		if stepErr != nil {
			record.Status = api.StepFailed
			record.Error = stepErr.Error()
			failedSteps++
			logging.Warn("Workflow", "Step %s of execution %s failed: %v", step.ID, execution.ExecutionID, stepErr)
		} else {
			lastResult = stepResult
		}
		execution.Steps = append(execution.Steps, record)

		if step.Condition != "" {
			proceed, message, condErr := e.evaluateCondition(step.Condition, stepResult, params)
			if condErr != nil {
				return e.fail(execution, api.NewWorkflowFatalError(def.ID, fmt.Sprintf("step %s condition", step.ID), condErr))
			}
			if !proceed {
				stopMessage = message
				logging.Info("Workflow", "Execution %s stopped after step %s: condition %s evaluated false",
					execution.ExecutionID, step.ID, step.Condition)
				break steps
			}
		}
	}

	now := time.Now()
	execution.CompletedAt = &now
	execution.Status = api.ExecutionCompleted
	execution.Result = &api.ExecutionResult{
		Success: true,
		Message: completionMessage(len(execution.Steps), failedSteps, stopMessage),
		Data:    lastResult,
	}
	e.history.Add(*execution)
	e.publishCompletion(execution)
	return copyExecution(execution), nil
}

// fail marks an execution failed after an engine-level fault, preserving
// every step recorded so far. The fault is communicated through the record,
// not an error return.
func (e *Engine) fail(execution *api.WorkflowExecution, fatal error) (api.WorkflowExecution, error) {
	now := time.Now()
	execution.CompletedAt = &now
	execution.Status = api.ExecutionFailed
	execution.Result = &api.ExecutionResult{
		Success: false,
		Error:   fatal.Error(),
	}
	e.history.Add(*execution)
	e.publishCompletion(execution)
	logging.Error("Workflow", fatal, "Execution %s of workflow %s failed", execution.ExecutionID, execution.WorkflowID)
	return copyExecution(execution), nil
}

func (e *Engine) evaluateCondition(name string, stepResult interface{}, params map[string]interface{}) (bool, string, error) {
	e.mu.RLock()
	cond, known := e.conditions[name]
	e.mu.RUnlock()

	if !known {
		if e.strict {
			return false, "", fmt.Errorf("unrecognized condition %q", name)
		}
		// Lenient mode favors forward progress: unrecognized conditions
		// continue. See StrictConditions.
		logging.Warn("Workflow", "Unrecognized condition %q, continuing", name)
		return true, "", nil
	}
	if cond.eval(stepResult, params) {
		return true, "", nil
	}
	return false, cond.stopMessage, nil
}

func (e *Engine) publishCompletion(execution *api.WorkflowExecution) {
	if e.publisher == nil {
		return
	}
	data := map[string]interface{}{
		"executionId": execution.ExecutionID,
		"workflowId":  execution.WorkflowID,
		"status":      string(execution.Status),
		"stepCount":   len(execution.Steps),
	}
	if execution.Result != nil {
		data["success"] = execution.Result.Success
		if execution.Result.Message != "" {
			data["message"] = execution.Result.Message
		}
		if execution.Result.Error != "" {
			data["error"] = execution.Result.Error
		}
	}
	e.publisher.Publish(api.Event{
		Type: api.EventWorkflowCompleted,
		Data: data,
	})
}

// GetHistory returns the most recent executions in reverse-chronological
// order, bounded by limit.
func (e *Engine) GetHistory(limit int) []api.WorkflowExecution {
	return e.history.Recent(limit)
}

// GetExecution returns one execution by id.
func (e *Engine) GetExecution(executionID string) (api.WorkflowExecution, bool) {
	return e.history.Get(executionID)
}

// PruneHistory discards terminal executions older than the retention
// window and reports how many were removed.
func (e *Engine) PruneHistory(retention time.Duration) int {
	return e.history.Prune(retention)
}

func completionMessage(totalSteps, failedSteps int, stopMessage string) string {
	if stopMessage != "" {
		return stopMessage
	}
	if failedSteps > 0 {
		return fmt.Sprintf("completed %d steps (%d failed)", totalSteps, failedSteps)
	}
	return fmt.Sprintf("completed %d steps", totalSteps)
}

// applyDefaults merges definition defaults into the caller's parameters.
// The caller's values win; the token "{now}" in a default expands to a
// timestamp suitable for path components.
func applyDefaults(params, defaults map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(params)+len(defaults))
	for k, v := range params {
		merged[k] = v
	}
	now := time.Now().Format("20060102-150405")
	for k, v := range defaults {
		if _, present := merged[k]; present {
			continue
		}
		if s, ok := v.(string); ok {
			v = strings.ReplaceAll(s, "{now}", now)
		}
		merged[k] = v
	}
	return merged
}

// resolveArgs substitutes "{param}" placeholders in step arguments from the
// workflow parameters. A string that is exactly one placeholder resolves to
// the parameter's original type; placeholders embedded in longer strings
// are formatted into them. Unknown placeholders are left untouched.
func resolveArgs(args, params map[string]interface{}) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(args))
	for key, value := range args {
		v, err := resolveValue(value, params)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", key, err)
		}
		resolved[key] = v
	}
	return resolved, nil
}

func resolveValue(value interface{}, params map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, params), nil
	case map[string]interface{}:
		resolved := make(map[string]interface{}, len(v))
		for k, inner := range v {
			r, err := resolveValue(inner, params)
			if err != nil {
				return nil, err
			}
			resolved[k] = r
		}
		return resolved, nil
	case []interface{}:
		resolved := make([]interface{}, len(v))
		for i, inner := range v {
			r, err := resolveValue(inner, params)
			if err != nil {
				return nil, err
			}
			resolved[i] = r
		}
		return resolved, nil
	default:
		return value, nil
	}
}

func resolveString(s string, params map[string]interface{}) interface{} {
	if !strings.Contains(s, "{") {
		return s
	}

	// Exact placeholder: preserve the parameter's type.
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") && strings.Count(s, "{") == 1 {
		key := s[1 : len(s)-1]
		if v, present := params[key]; present {
			return v
		}
		return s
	}

	out := s
	for key, v := range params {
		out = strings.ReplaceAll(out, "{"+key+"}", fmt.Sprintf("%v", v))
	}
	return out
}
