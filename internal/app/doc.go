// Package app bootstraps and runs the infraops server: it loads the
// configuration directory, wires the registry, workflow engine, event bus
// and scheduler together, and serves the MCP and event endpoints.
package app
