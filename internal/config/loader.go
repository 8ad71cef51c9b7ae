package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"infraops/internal/api"
	"infraops/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir     = ".config/infraops"
	configFileName    = "config.yaml"
	servicesFileName  = "services.yaml"
	workflowsFileName = "workflows.yaml"
)

// GetDefaultConfigPathOrPanic returns the per-user configuration directory.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}
	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads config.yaml from the given directory. A missing file
// returns the defaults; a malformed file is an error.
func LoadConfig(configPath string) (InfraOpsConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return InfraOpsConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return InfraOpsConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// LoadServices loads the service descriptors from services.yaml in the
// given directory. A missing file yields no services.
func LoadServices(configPath string) ([]api.ServiceDescriptor, error) {
	filePath := filepath.Join(configPath, servicesFileName)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No services.yaml found at %s", filePath)
			return nil, nil
		}
		return nil, err
	}

	var file servicesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error loading services from %s: %w", filePath, err)
	}

	descriptors := make([]api.ServiceDescriptor, 0, len(file.Services))
	for _, service := range file.Services {
		if service.ID == "" || service.BaseURL == "" {
			return nil, fmt.Errorf("%s: every service needs an id and a baseUrl", filePath)
		}
		descriptors = append(descriptors, service.Descriptor())
	}
	logging.Info("ConfigLoader", "Loaded %d services from %s", len(descriptors), filePath)
	return descriptors, nil
}

// LoadWorkflows loads extra workflow definitions from workflows.yaml in the
// given directory. A missing file yields no workflows; definition validation
// happens at registration.
func LoadWorkflows(configPath string) ([]api.WorkflowDefinition, error) {
	filePath := filepath.Join(configPath, workflowsFileName)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No workflows.yaml found at %s", filePath)
			return nil, nil
		}
		return nil, err
	}

	var file workflowsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error loading workflows from %s: %w", filePath, err)
	}

	definitions := make([]api.WorkflowDefinition, 0, len(file.Workflows))
	for _, workflow := range file.Workflows {
		definitions = append(definitions, workflow.Definition())
	}
	logging.Info("ConfigLoader", "Loaded %d workflows from %s", len(definitions), filePath)
	return definitions, nil
}
