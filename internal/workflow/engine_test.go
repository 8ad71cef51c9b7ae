package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"infraops/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	ServiceID string
	Tool      string
	Args      map[string]interface{}
}

// fakeInvoker records invocations and answers them through a handler.
type fakeInvoker struct {
	mu      sync.Mutex
	calls   []invocation
	handler func(serviceID, tool string, args map[string]interface{}) (interface{}, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, serviceID, tool string, args map[string]interface{}) (*api.InvokeResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{ServiceID: serviceID, Tool: tool, Args: args})
	f.mu.Unlock()

	result, err := f.handler(serviceID, tool, args)
	if err != nil {
		return nil, err
	}
	return &api.InvokeResult{
		ServiceID: serviceID,
		Tool:      tool,
		Arguments: args,
		Result:    result,
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeInvoker) recorded() []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]invocation, len(f.calls))
	copy(out, f.calls)
	return out
}

func okInvoker() *fakeInvoker {
	return &fakeInvoker{
		handler: func(serviceID, tool string, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"ok": true}, nil
		},
	}
}

func serviceStep(id, service, tool string) api.WorkflowStep {
	return api.WorkflowStep{ID: id, Name: id, Kind: api.StepService, ServiceID: service, Tool: tool}
}

func threeStepDefinition() api.WorkflowDefinition {
	return api.WorkflowDefinition{
		ID:   "three-steps",
		Name: "Three steps",
		Steps: []api.WorkflowStep{
			serviceStep("one", "svc", "first"),
			serviceStep("two", "svc", "second"),
			serviceStep("three", "svc", "third"),
		},
	}
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})

	_, err := engine.Execute(context.Background(), "ghost", nil)
	assert.True(t, api.IsUnknownWorkflow(err))
	assert.Empty(t, engine.GetHistory(0), "no execution record may exist for an unknown workflow")
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	invoker := okInvoker()
	engine := New(Config{Invoker: invoker})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	execution, err := engine.Execute(context.Background(), "three-steps", nil)
	require.NoError(t, err)

	assert.Equal(t, api.ExecutionCompleted, execution.Status)
	require.Len(t, execution.Steps, 3)
	assert.Equal(t, "one", execution.Steps[0].StepID)
	assert.Equal(t, "two", execution.Steps[1].StepID)
	assert.Equal(t, "three", execution.Steps[2].StepID)
	for _, step := range execution.Steps {
		assert.Equal(t, api.StepCompleted, step.Status)
	}

	calls := invoker.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "first", calls[0].Tool)
	assert.Equal(t, "third", calls[2].Tool)
	require.NotNil(t, execution.CompletedAt)
	assert.True(t, execution.Result.Success)
}

func TestExecuteConditionStopsFurtherSteps(t *testing.T) {
	invoker := &fakeInvoker{
		handler: func(serviceID, tool string, args map[string]interface{}) (interface{}, error) {
			if tool == "second" {
				// Empty result makes result_not_empty evaluate false.
				return map[string]interface{}{}, nil
			}
			return map[string]interface{}{"ok": true}, nil
		},
	}
	def := threeStepDefinition()
	def.Steps[1].Condition = "result_not_empty"

	engine := New(Config{Invoker: invoker})
	require.NoError(t, engine.RegisterDefinition(def))

	execution, err := engine.Execute(context.Background(), "three-steps", nil)
	require.NoError(t, err)

	// Exactly steps 1 and 2 recorded, step 3 absent, run completed.
	require.Len(t, execution.Steps, 2)
	assert.Equal(t, "one", execution.Steps[0].StepID)
	assert.Equal(t, "two", execution.Steps[1].StepID)
	assert.Equal(t, api.ExecutionCompleted, execution.Status)
	assert.True(t, execution.Result.Success)
	assert.Len(t, invoker.recorded(), 2)
}

func TestExecuteStepFailureRecordedAndContinues(t *testing.T) {
	invoker := &fakeInvoker{
		handler: func(serviceID, tool string, args map[string]interface{}) (interface{}, error) {
			if tool == "second" {
				return nil, errors.New("backend exploded")
			}
			return map[string]interface{}{"ok": true}, nil
		},
	}
	engine := New(Config{Invoker: invoker})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	execution, err := engine.Execute(context.Background(), "three-steps", nil)
	require.NoError(t, err)

	require.Len(t, execution.Steps, 3)
	assert.Equal(t, api.StepFailed, execution.Steps[1].Status)
	assert.Contains(t, execution.Steps[1].Error, "backend exploded")
	assert.Equal(t, api.StepCompleted, execution.Steps[2].Status)
	assert.Equal(t, api.ExecutionCompleted, execution.Status)
	assert.Contains(t, execution.Result.Message, "1 failed")
}

func TestExecuteUnknownActionIsFatal(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})
	require.NoError(t, engine.RegisterDefinition(api.WorkflowDefinition{
		ID: "broken",
		Steps: []api.WorkflowStep{
			serviceStep("one", "svc", "first"),
			{ID: "two", Name: "two", Kind: api.StepInternal, Action: "does_not_exist"},
		},
	}))

	execution, err := engine.Execute(context.Background(), "broken", nil)
	require.NoError(t, err, "fatal faults are communicated through the record")

	assert.Equal(t, api.ExecutionFailed, execution.Status)
	assert.False(t, execution.Result.Success)
	assert.Contains(t, execution.Result.Error, "does_not_exist")
	// The step executed before the fault stays in the record.
	require.Len(t, execution.Steps, 1)
	assert.Equal(t, "one", execution.Steps[0].StepID)
}

func TestExecuteUnknownConditionLenientContinues(t *testing.T) {
	def := threeStepDefinition()
	def.Steps[0].Condition = "nobody_knows_this"

	engine := New(Config{Invoker: okInvoker()})
	require.NoError(t, engine.RegisterDefinition(def))

	execution, err := engine.Execute(context.Background(), "three-steps", nil)
	require.NoError(t, err)
	assert.Len(t, execution.Steps, 3)
	assert.Equal(t, api.ExecutionCompleted, execution.Status)
}

func TestExecuteUnknownConditionStrictFails(t *testing.T) {
	def := threeStepDefinition()
	def.Steps[0].Condition = "nobody_knows_this"

	engine := New(Config{Invoker: okInvoker(), StrictConditions: true})
	require.NoError(t, engine.RegisterDefinition(def))

	execution, err := engine.Execute(context.Background(), "three-steps", nil)
	require.NoError(t, err)
	assert.Equal(t, api.ExecutionFailed, execution.Status)
	assert.Contains(t, execution.Result.Error, "nobody_knows_this")
}

func TestExecuteParameterSubstitution(t *testing.T) {
	invoker := okInvoker()
	def := api.WorkflowDefinition{
		ID: "params",
		Steps: []api.WorkflowStep{
			{
				ID: "one", Name: "one", Kind: api.StepService, ServiceID: "svc", Tool: "first",
				Args: map[string]interface{}{
					"exact":    "{count}",
					"embedded": "item-{count}",
					"nested":   map[string]interface{}{"path": "{dir}/file"},
				},
			},
		},
	}
	engine := New(Config{Invoker: invoker})
	require.NoError(t, engine.RegisterDefinition(def))

	_, err := engine.Execute(context.Background(), "params", map[string]interface{}{
		"count": 7,
		"dir":   "/tmp",
	})
	require.NoError(t, err)

	calls := invoker.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].Args["exact"], "exact placeholders keep the parameter type")
	assert.Equal(t, "item-7", calls[0].Args["embedded"])
	nested := calls[0].Args["nested"].(map[string]interface{})
	assert.Equal(t, "/tmp/file", nested["path"])
}

func TestExecutionIDsAreMonotonic(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	var ids []string
	for i := 0; i < 3; i++ {
		execution, err := engine.Execute(context.Background(), "three-steps", nil)
		require.NoError(t, err)
		ids = append(ids, execution.ExecutionID)
	}
	assert.Equal(t, []string{"exec-1", "exec-2", "exec-3"}, ids)
}

func TestListWorkflows(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))
	require.NoError(t, engine.RegisterDefinition(ConfigBackupDefinition("backup", "fs")))

	summaries := engine.List()
	require.Len(t, summaries, 2)
	assert.Equal(t, "three-steps", summaries[0].ID)
	assert.Equal(t, 3, summaries[0].StepCount)
	assert.Equal(t, ConfigBackupWorkflowID, summaries[1].ID)
}

func TestRegisterDefinitionValidation(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})

	assert.Error(t, engine.RegisterDefinition(api.WorkflowDefinition{ID: ""}))
	assert.Error(t, engine.RegisterDefinition(api.WorkflowDefinition{ID: "empty"}))
	assert.Error(t, engine.RegisterDefinition(api.WorkflowDefinition{
		ID:    "bad-kind",
		Steps: []api.WorkflowStep{{ID: "x", Kind: "teleport"}},
	}))
	assert.Error(t, engine.RegisterDefinition(api.WorkflowDefinition{
		ID:    "no-tool",
		Steps: []api.WorkflowStep{{ID: "x", Kind: api.StepService, ServiceID: "svc"}},
	}))
}

func TestGetHistoryReverseChronological(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	for i := 0; i < 5; i++ {
		_, err := engine.Execute(context.Background(), "three-steps", nil)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	recent := engine.GetHistory(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "exec-5", recent[0].ExecutionID)
	assert.Equal(t, "exec-4", recent[1].ExecutionID)
	assert.Equal(t, "exec-3", recent[2].ExecutionID)
}

func TestWorkflowCompletionEventPublished(t *testing.T) {
	bus := &capturingPublisher{}
	engine := New(Config{Invoker: okInvoker(), Publisher: bus})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	execution, err := engine.Execute(context.Background(), "three-steps", nil)
	require.NoError(t, err)

	events := bus.captured()
	require.Len(t, events, 1)
	assert.Equal(t, api.EventWorkflowCompleted, events[0].Type)
	assert.Equal(t, execution.ExecutionID, events[0].Data["executionId"])
	assert.Equal(t, string(api.ExecutionCompleted), events[0].Data["status"])
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []api.Event
}

func (c *capturingPublisher) Publish(event api.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *capturingPublisher) captured() []api.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Event, len(c.events))
	copy(out, c.events)
	return out
}

func TestConcurrentExecutionsIndependent(t *testing.T) {
	engine := New(Config{Invoker: okInvoker()})
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	var wg sync.WaitGroup
	results := make([]api.WorkflowExecution, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			execution, err := engine.Execute(context.Background(), "three-steps", nil)
			if err == nil {
				results[n] = execution
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, execution := range results {
		require.NotEmpty(t, execution.ExecutionID)
		assert.False(t, seen[execution.ExecutionID], "execution id %s issued twice", execution.ExecutionID)
		seen[execution.ExecutionID] = true
		assert.Len(t, execution.Steps, 3)
	}
	assert.Len(t, engine.GetHistory(0), 10)
}
