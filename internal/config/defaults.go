package config

const (
	// DefaultHost is the address the server binds to.
	DefaultHost = "localhost"

	// DefaultPort serves the MCP endpoint and the event stream.
	DefaultPort = 8090
)

// GetDefaultConfig returns the configuration used when config.yaml is
// absent.
func GetDefaultConfig() InfraOpsConfig {
	return InfraOpsConfig{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Workflow: WorkflowConfig{
			StrictConditions: false,
		},
	}
}
