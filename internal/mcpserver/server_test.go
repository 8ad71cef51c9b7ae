package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"infraops/internal/api"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRegistry struct {
	records    []api.ServiceRecord
	invoked    []string
	stopped    []string
	invokeErr  error
	getErr     error
	toolResult interface{}
}

func (s *stubRegistry) ListAll(ctx context.Context) []api.ServiceRecord { return s.records }

func (s *stubRegistry) Get(serviceID string) (api.ServiceRecord, error) {
	if s.getErr != nil {
		return api.ServiceRecord{}, s.getErr
	}
	for _, record := range s.records {
		if record.Descriptor.ID == serviceID {
			return record, nil
		}
	}
	return api.ServiceRecord{}, api.NewUnknownServiceError(serviceID)
}

func (s *stubRegistry) Discover(ctx context.Context, serviceID string) (api.ServiceRecord, error) {
	return s.Get(serviceID)
}

func (s *stubRegistry) ListTools(ctx context.Context, serviceID string) ([]api.ToolDescriptor, error) {
	return []api.ToolDescriptor{{Name: "run_backup_job"}}, nil
}

func (s *stubRegistry) Invoke(ctx context.Context, serviceID, tool string, args map[string]interface{}) (*api.InvokeResult, error) {
	s.invoked = append(s.invoked, serviceID+"/"+tool)
	if s.invokeErr != nil {
		return nil, s.invokeErr
	}
	return &api.InvokeResult{
		ServiceID: serviceID,
		Tool:      tool,
		Arguments: args,
		Result:    s.toolResult,
		Timestamp: time.Now(),
	}, nil
}

func (s *stubRegistry) Start(ctx context.Context, serviceID string) (api.ServiceRecord, error) {
	return s.Get(serviceID)
}

func (s *stubRegistry) Stop(serviceID string) error {
	s.stopped = append(s.stopped, serviceID)
	return nil
}

type stubWorkflows struct {
	summaries  []api.WorkflowSummary
	executions map[string]api.WorkflowExecution
	executed   []string
	executeErr error
}

func (s *stubWorkflows) List() []api.WorkflowSummary { return s.summaries }

func (s *stubWorkflows) Execute(ctx context.Context, workflowID string, params map[string]interface{}) (api.WorkflowExecution, error) {
	s.executed = append(s.executed, workflowID)
	if s.executeErr != nil {
		return api.WorkflowExecution{}, s.executeErr
	}
	return api.WorkflowExecution{ExecutionID: "exec-1", WorkflowID: workflowID, Status: api.ExecutionCompleted}, nil
}

func (s *stubWorkflows) GetHistory(limit int) []api.WorkflowExecution {
	var out []api.WorkflowExecution
	for _, execution := range s.executions {
		out = append(out, execution)
	}
	return out
}

func (s *stubWorkflows) GetExecution(executionID string) (api.WorkflowExecution, bool) {
	execution, exists := s.executions[executionID]
	return execution, exists
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func testServer(registry *stubRegistry, workflows *stubWorkflows) *MCPServer {
	return New(registry, workflows, "test")
}

func TestHandleGetService(t *testing.T) {
	registry := &stubRegistry{records: []api.ServiceRecord{{
		Descriptor: api.ServiceDescriptor{ID: "backup", BaseURL: "http://localhost:9001"},
		Status:     api.StatusRunning,
	}}}
	server := testServer(registry, &stubWorkflows{})

	result, err := server.handleGetService(context.Background(), toolRequest(map[string]interface{}{"serviceId": "backup"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, string(api.StatusRunning), payload["status"])
}

func TestHandleGetServiceMissingArgument(t *testing.T) {
	server := testServer(&stubRegistry{}, &stubWorkflows{})

	result, err := server.handleGetService(context.Background(), toolRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleInvokeTool(t *testing.T) {
	registry := &stubRegistry{toolResult: map[string]interface{}{"status": "ok"}}
	server := testServer(registry, &stubWorkflows{})

	result, err := server.handleInvokeTool(context.Background(), toolRequest(map[string]interface{}{
		"serviceId": "backup",
		"tool":      "run_backup_job",
		"arguments": map[string]interface{}{"targetPath": "/backups/x"},
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "run_backup_job", payload["tool"])
	require.Equal(t, []string{"backup/run_backup_job"}, registry.invoked)
}

func TestHandleInvokeToolErrorBecomesToolError(t *testing.T) {
	registry := &stubRegistry{invokeErr: api.NewUnknownToolError("backup", "no_such_tool")}
	server := testServer(registry, &stubWorkflows{})

	result, err := server.handleInvokeTool(context.Background(), toolRequest(map[string]interface{}{
		"serviceId": "backup",
		"tool":      "no_such_tool",
	}))
	require.NoError(t, err, "tool failures are reported in-band, not as protocol errors")
	assert.True(t, result.IsError)
}

func TestHandleExecuteWorkflow(t *testing.T) {
	workflows := &stubWorkflows{}
	server := testServer(&stubRegistry{}, workflows)

	result, err := server.handleExecuteWorkflow(context.Background(), toolRequest(map[string]interface{}{
		"workflowId": "config_backup",
		"parameters": map[string]interface{}{"targetPath": "/backups/x"},
	}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "exec-1", payload["executionId"])
	assert.Equal(t, []string{"config_backup"}, workflows.executed)
}

func TestHandleExecuteWorkflowUnknown(t *testing.T) {
	workflows := &stubWorkflows{executeErr: api.NewUnknownWorkflowError("ghost")}
	server := testServer(&stubRegistry{}, workflows)

	result, err := server.handleExecuteWorkflow(context.Background(), toolRequest(map[string]interface{}{
		"workflowId": "ghost",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGetExecution(t *testing.T) {
	workflows := &stubWorkflows{executions: map[string]api.WorkflowExecution{
		"exec-7": {ExecutionID: "exec-7", WorkflowID: "config_backup", Status: api.ExecutionCompleted},
	}}
	server := testServer(&stubRegistry{}, workflows)

	result, err := server.handleGetExecution(context.Background(), toolRequest(map[string]interface{}{"executionId": "exec-7"}))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, "config_backup", payload["workflowId"])

	result, err = server.handleGetExecution(context.Background(), toolRequest(map[string]interface{}{"executionId": "exec-8"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleStopService(t *testing.T) {
	registry := &stubRegistry{}
	server := testServer(registry, &stubWorkflows{})

	result, err := server.handleStopService(context.Background(), toolRequest(map[string]interface{}{"serviceId": "backup"}))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["stopped"])
	assert.Equal(t, []string{"backup"}, registry.stopped)
}

func TestHandlerErrorsAreNeverProtocolErrors(t *testing.T) {
	registry := &stubRegistry{getErr: errors.New("boom")}
	server := testServer(registry, &stubWorkflows{})

	result, err := server.handleGetService(context.Background(), toolRequest(map[string]interface{}{"serviceId": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
