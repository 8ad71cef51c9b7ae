package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"infraops/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
}

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	tempDir := t.TempDir()

	config, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
	assert.Equal(t, DefaultPort, config.Server.Port)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "config.yaml", `
server:
  port: 9000
workflow:
  strictConditions: true
`)

	config, err := LoadConfig(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, DefaultHost, config.Server.Host, "unset fields keep their defaults")
	assert.True(t, config.Workflow.StrictConditions)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "config.yaml", "server: [not a mapping")

	_, err := LoadConfig(tempDir)
	assert.Error(t, err)
}

func TestLoadServices(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "services.yaml", `
services:
  - id: backup
    displayName: Backup Service
    baseUrl: http://localhost:9001
    longRunningTools: [run_backup_job]
  - id: search
    baseUrl: http://localhost:9002
    healthPath: /healthz
    kind: mcp
`)

	descriptors, err := LoadServices(tempDir)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	assert.Equal(t, "backup", descriptors[0].ID)
	assert.Equal(t, api.KindHTTP, descriptors[0].Kind)
	assert.True(t, descriptors[0].IsLongRunning("run_backup_job"))

	assert.Equal(t, api.KindMCP, descriptors[1].Kind)
	assert.Equal(t, "/healthz", descriptors[1].HealthPath)
}

func TestLoadServicesMissingFileIsEmpty(t *testing.T) {
	descriptors, err := LoadServices(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, descriptors)
}

func TestLoadServicesRejectsIncompleteEntries(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "services.yaml", `
services:
  - id: nameless
`)

	_, err := LoadServices(tempDir)
	assert.Error(t, err)
}

func TestLoadWorkflows(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "workflows.yaml", `
workflows:
  - id: rotate-keys
    name: Rotate keys
    defaults:
      keyPath: /etc/keys
    steps:
      - id: rotate
        name: Rotate
        serviceId: vault
        tool: rotate_keys
        args:
          path: "{keyPath}"
      - id: archive
        name: Archive
        kind: internal
        action: copy_artifacts
        condition: artifacts_present
`)

	definitions, err := LoadWorkflows(tempDir)
	require.NoError(t, err)
	require.Len(t, definitions, 1)

	def := definitions[0]
	assert.Equal(t, "rotate-keys", def.ID)
	assert.Equal(t, "/etc/keys", def.Defaults["keyPath"])
	require.Len(t, def.Steps, 2)
	assert.Equal(t, api.StepService, def.Steps[0].Kind, "kind defaults to service")
	assert.Equal(t, "{keyPath}", def.Steps[0].Args["path"])
	assert.Equal(t, api.StepInternal, def.Steps[1].Kind)
	assert.Equal(t, "artifacts_present", def.Steps[1].Condition)
}

func TestWatcherNotifiesOnRelevantWrites(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "services.yaml", "services: []\n")

	var mu sync.Mutex
	var changed []string
	watcher, err := NewWatcher(tempDir, func(filename string) {
		mu.Lock()
		defer mu.Unlock()
		changed = append(changed, filename)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	writeConfigFile(t, tempDir, "services.yaml", "services: []\n# edited\n")
	writeConfigFile(t, tempDir, "unrelated.txt", "ignored")

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		got := append([]string(nil), changed...)
		mu.Unlock()
		if len(got) > 0 {
			assert.Contains(t, got, "services.yaml")
			assert.NotContains(t, got, "unrelated.txt")
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("watcher never reported the change")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
