package config

import "infraops/internal/api"

// InfraOpsConfig is the top-level configuration structure loaded from
// config.yaml.
type InfraOpsConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

// ServerConfig defines where the core serves its endpoints.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // Host to bind to (default: localhost)
	Port int    `yaml:"port,omitempty"` // Port for the MCP and event endpoints (default: 8090)
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	// StrictConditions makes an unrecognized step condition fail the
	// execution instead of continuing.
	StrictConditions bool `yaml:"strictConditions,omitempty"`
}

// ServiceConfig is one entry of services.yaml.
type ServiceConfig struct {
	ID               string   `yaml:"id"`
	DisplayName      string   `yaml:"displayName,omitempty"`
	BaseURL          string   `yaml:"baseUrl"`
	HealthPath       string   `yaml:"healthPath,omitempty"`
	Kind             string   `yaml:"kind,omitempty"` // "http" (default) or "mcp"
	LongRunningTools []string `yaml:"longRunningTools,omitempty"`
}

// Descriptor converts the yaml entry to a registry descriptor.
func (s ServiceConfig) Descriptor() api.ServiceDescriptor {
	kind := api.KindHTTP
	if s.Kind == string(api.KindMCP) {
		kind = api.KindMCP
	}
	return api.ServiceDescriptor{
		ID:               s.ID,
		DisplayName:      s.DisplayName,
		BaseURL:          s.BaseURL,
		HealthPath:       s.HealthPath,
		Kind:             kind,
		LongRunningTools: s.LongRunningTools,
	}
}

// servicesFile is the shape of services.yaml.
type servicesFile struct {
	Services []ServiceConfig `yaml:"services"`
}

// workflowsFile is the shape of workflows.yaml.
type workflowsFile struct {
	Workflows []WorkflowSpec `yaml:"workflows"`
}

// WorkflowSpec is one workflow definition as written in workflows.yaml.
type WorkflowSpec struct {
	ID          string                 `yaml:"id"`
	Name        string                 `yaml:"name,omitempty"`
	Description string                 `yaml:"description,omitempty"`
	Defaults    map[string]interface{} `yaml:"defaults,omitempty"`
	Steps       []WorkflowStepSpec     `yaml:"steps"`
}

// WorkflowStepSpec is one step of a WorkflowSpec.
type WorkflowStepSpec struct {
	ID        string                 `yaml:"id"`
	Name      string                 `yaml:"name,omitempty"`
	Kind      string                 `yaml:"kind,omitempty"` // "service" (default) or "internal"
	ServiceID string                 `yaml:"serviceId,omitempty"`
	Tool      string                 `yaml:"tool,omitempty"`
	Action    string                 `yaml:"action,omitempty"`
	Args      map[string]interface{} `yaml:"args,omitempty"`
	Condition string                 `yaml:"condition,omitempty"`
}

// Definition converts the yaml spec to an engine definition.
func (w WorkflowSpec) Definition() api.WorkflowDefinition {
	steps := make([]api.WorkflowStep, 0, len(w.Steps))
	for _, step := range w.Steps {
		kind := api.StepService
		if step.Kind == string(api.StepInternal) {
			kind = api.StepInternal
		}
		steps = append(steps, api.WorkflowStep{
			ID:        step.ID,
			Name:      step.Name,
			Kind:      kind,
			ServiceID: step.ServiceID,
			Tool:      step.Tool,
			Action:    step.Action,
			Args:      step.Args,
			Condition: step.Condition,
		})
	}
	return api.WorkflowDefinition{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Defaults:    w.Defaults,
		Steps:       steps,
	}
}
