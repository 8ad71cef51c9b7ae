package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// jsonResult renders a value as an indented JSON text result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArgument(request mcp.CallToolRequest, name string) (string, *mcp.CallToolResult) {
	value, ok := request.GetArguments()[name].(string)
	if !ok || value == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("Missing required argument %q", name))
	}
	return value, nil
}

func objectArgument(request mcp.CallToolRequest, name string) map[string]interface{} {
	if value, ok := request.GetArguments()[name].(map[string]interface{}); ok {
		return value
	}
	return map[string]interface{}{}
}

func (m *MCPServer) handleListServices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(m.registry.ListAll(ctx))
}

func (m *MCPServer) handleGetService(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceID, errResult := stringArgument(request, "serviceId")
	if errResult != nil {
		return errResult, nil
	}
	record, err := m.registry.Get(serviceID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(record)
}

func (m *MCPServer) handleDiscoverService(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceID, errResult := stringArgument(request, "serviceId")
	if errResult != nil {
		return errResult, nil
	}
	record, err := m.registry.Discover(ctx, serviceID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(record)
}

func (m *MCPServer) handleListServiceTools(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceID, errResult := stringArgument(request, "serviceId")
	if errResult != nil {
		return errResult, nil
	}
	tools, err := m.registry.ListTools(ctx, serviceID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"serviceId": serviceID, "tools": tools})
}

func (m *MCPServer) handleInvokeTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceID, errResult := stringArgument(request, "serviceId")
	if errResult != nil {
		return errResult, nil
	}
	tool, errResult := stringArgument(request, "tool")
	if errResult != nil {
		return errResult, nil
	}

	result, err := m.registry.Invoke(ctx, serviceID, tool, objectArgument(request, "arguments"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func (m *MCPServer) handleStartService(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceID, errResult := stringArgument(request, "serviceId")
	if errResult != nil {
		return errResult, nil
	}
	record, err := m.registry.Start(ctx, serviceID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(record)
}

func (m *MCPServer) handleStopService(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceID, errResult := stringArgument(request, "serviceId")
	if errResult != nil {
		return errResult, nil
	}
	if err := m.registry.Stop(serviceID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"serviceId": serviceID, "stopped": true})
}

func (m *MCPServer) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(m.workflows.List())
}

func (m *MCPServer) handleExecuteWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, errResult := stringArgument(request, "workflowId")
	if errResult != nil {
		return errResult, nil
	}
	execution, err := m.workflows.Execute(ctx, workflowID, objectArgument(request, "parameters"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(execution)
}

func (m *MCPServer) handleGetExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	executionID, errResult := stringArgument(request, "executionId")
	if errResult != nil {
		return errResult, nil
	}
	execution, exists := m.workflows.GetExecution(executionID)
	if !exists {
		return mcp.NewToolResultError(fmt.Sprintf("Unknown execution %q", executionID)), nil
	}
	return jsonResult(execution)
}

func (m *MCPServer) handleExecutionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if value, ok := request.GetArguments()["limit"].(float64); ok {
		limit = int(value)
	}
	return jsonResult(m.workflows.GetHistory(limit))
}
