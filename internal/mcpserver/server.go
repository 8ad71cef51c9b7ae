package mcpserver

import (
	"context"
	"net/http"

	"infraops/internal/api"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServiceAPI is the registry surface exposed over MCP.
type ServiceAPI interface {
	ListAll(ctx context.Context) []api.ServiceRecord
	Get(serviceID string) (api.ServiceRecord, error)
	Discover(ctx context.Context, serviceID string) (api.ServiceRecord, error)
	ListTools(ctx context.Context, serviceID string) ([]api.ToolDescriptor, error)
	Invoke(ctx context.Context, serviceID, tool string, args map[string]interface{}) (*api.InvokeResult, error)
	Start(ctx context.Context, serviceID string) (api.ServiceRecord, error)
	Stop(serviceID string) error
}

// WorkflowAPI is the engine surface exposed over MCP.
type WorkflowAPI interface {
	List() []api.WorkflowSummary
	Execute(ctx context.Context, workflowID string, params map[string]interface{}) (api.WorkflowExecution, error)
	GetHistory(limit int) []api.WorkflowExecution
	GetExecution(executionID string) (api.WorkflowExecution, bool)
}

// MCPServer bridges MCP clients to the registry and the workflow engine.
type MCPServer struct {
	registry  ServiceAPI
	workflows WorkflowAPI
	mcpServer *server.MCPServer
}

// New creates the MCP server and registers its tool set.
func New(registry ServiceAPI, workflows WorkflowAPI, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"infraops",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	m := &MCPServer{
		registry:  registry,
		workflows: workflows,
		mcpServer: mcpServer,
	}
	m.registerTools()
	return m
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func (m *MCPServer) ServeStdio() error {
	return server.ServeStdio(m.mcpServer)
}

// Handler returns the streamable HTTP handler for remote MCP clients.
func (m *MCPServer) Handler() http.Handler {
	return server.NewStreamableHTTPServer(m.mcpServer)
}

func (m *MCPServer) registerTools() {
	m.mcpServer.AddTool(mcp.NewTool("list_services",
		mcp.WithDescription("List every registered service with its current status"),
	), m.handleListServices)

	m.mcpServer.AddTool(mcp.NewTool("get_service",
		mcp.WithDescription("Get one service's record without probing it"),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("The service to look up")),
	), m.handleGetService)

	m.mcpServer.AddTool(mcp.NewTool("discover_service",
		mcp.WithDescription("Probe a service's health endpoint and refresh its status"),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("The service to probe")),
	), m.handleDiscoverService)

	m.mcpServer.AddTool(mcp.NewTool("list_service_tools",
		mcp.WithDescription("List the tools a service advertises"),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("The service to query")),
	), m.handleListServiceTools)

	m.mcpServer.AddTool(mcp.NewTool("invoke_tool",
		mcp.WithDescription("Invoke a named tool on a registered service"),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("The service to call")),
		mcp.WithString("tool", mcp.Required(), mcp.Description("The tool to invoke")),
		mcp.WithObject("arguments", mcp.Description("Arguments passed to the tool")),
	), m.handleInvokeTool)

	m.mcpServer.AddTool(mcp.NewTool("start_service",
		mcp.WithDescription("Re-enable a stopped service and probe it"),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("The service to start")),
	), m.handleStartService)

	m.mcpServer.AddTool(mcp.NewTool("stop_service",
		mcp.WithDescription("Mark a service unavailable so nothing routes to it"),
		mcp.WithString("serviceId", mcp.Required(), mcp.Description("The service to stop")),
	), m.handleStopService)

	m.mcpServer.AddTool(mcp.NewTool("list_workflows",
		mcp.WithDescription("List the registered workflow definitions"),
	), m.handleListWorkflows)

	m.mcpServer.AddTool(mcp.NewTool("execute_workflow",
		mcp.WithDescription("Run a workflow to completion and return its execution record"),
		mcp.WithString("workflowId", mcp.Required(), mcp.Description("The workflow to run")),
		mcp.WithObject("parameters", mcp.Description("Workflow parameters")),
	), m.handleExecuteWorkflow)

	m.mcpServer.AddTool(mcp.NewTool("get_execution",
		mcp.WithDescription("Get one workflow execution record by id"),
		mcp.WithString("executionId", mcp.Required(), mcp.Description("The execution to look up")),
	), m.handleGetExecution)

	m.mcpServer.AddTool(mcp.NewTool("execution_history",
		mcp.WithDescription("List recent workflow executions, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of executions to return")),
	), m.handleExecutionHistory)
}
