// Package mcpserver exposes the service registry and workflow engine as MCP
// tools, so AI assistants and MCP clients can inspect services, invoke their
// tools and run workflows through the standard MCP protocol.
//
// The server speaks two transports: stdio for direct assistant integration
// and streamable HTTP for remote clients. All responses are JSON-formatted
// text results.
package mcpserver
