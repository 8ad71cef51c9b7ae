package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"infraops/internal/api"
	"infraops/internal/config"
	"infraops/internal/events"
	"infraops/internal/mcpserver"
	"infraops/internal/registry"
	"infraops/internal/scheduler"
	"infraops/internal/workflow"
	"infraops/pkg/logging"
)

// BackupServiceID and FilesystemServiceID are the conventional service ids
// the built-in configuration backup pipeline binds to. The pipeline is
// registered when both services are configured.
const (
	BackupServiceID     = "backup"
	FilesystemServiceID = "filesystem"
)

const shutdownTimeout = 10 * time.Second

// Config controls application bootstrap.
type Config struct {
	// ConfigPath is the configuration directory. Empty means the per-user
	// default.
	ConfigPath string

	// Debug lowers the log level to debug.
	Debug bool

	// Silent discards all log output.
	Silent bool
}

// Application wires the core components together and runs the server.
type Application struct {
	configPath string
	cfg        config.InfraOpsConfig

	Bus       *events.Bus
	Registry  *registry.Registry
	Engine    *workflow.Engine
	Scheduler *scheduler.Scheduler
	MCP       *mcpserver.MCPServer
}

// NewApplication performs the bootstrap sequence: logging, configuration,
// component wiring, and registration of the configured services and
// workflows.
func NewApplication(cfg *Config, version string) (*Application, error) {
	logLevel := logging.LevelInfo
	if cfg.Debug {
		logLevel = logging.LevelDebug
	}
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.Init(logLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	infraCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	app := &Application{
		configPath: configPath,
		cfg:        infraCfg,
		Bus:        events.NewBus(),
	}
	app.Registry = registry.New(registry.Config{Publisher: app.Bus})
	app.Engine = workflow.New(workflow.Config{
		Invoker:          app.Registry,
		Publisher:        app.Bus,
		StrictConditions: infraCfg.Workflow.StrictConditions,
	})
	app.Scheduler = scheduler.New(scheduler.Config{
		Registry:  app.Registry,
		Engine:    app.Engine,
		Publisher: app.Bus,
	})
	app.MCP = mcpserver.New(app.Registry, app.Engine, version)

	if err := app.loadServices(); err != nil {
		return nil, err
	}
	if err := app.loadWorkflows(); err != nil {
		return nil, err
	}
	return app, nil
}

// loadServices registers the configured services and, when the backup and
// filesystem services are both present, the built-in backup pipeline.
func (a *Application) loadServices() error {
	descriptors, err := config.LoadServices(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}

	present := map[string]bool{}
	for _, descriptor := range descriptors {
		if err := a.Registry.Register(descriptor); err != nil {
			return fmt.Errorf("failed to register service %s: %w", descriptor.ID, err)
		}
		present[descriptor.ID] = true
	}

	if present[BackupServiceID] && present[FilesystemServiceID] {
		if err := a.Engine.RegisterDefinition(workflow.ConfigBackupDefinition(BackupServiceID, FilesystemServiceID)); err != nil {
			return err
		}
		logging.Info("Bootstrap", "Registered built-in %s workflow", workflow.ConfigBackupWorkflowID)
	}
	return nil
}

func (a *Application) loadWorkflows() error {
	definitions, err := config.LoadWorkflows(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}
	for _, definition := range definitions {
		if err := a.Engine.RegisterDefinition(definition); err != nil {
			return fmt.Errorf("failed to register workflow %s: %w", definition.ID, err)
		}
	}
	return nil
}

// Run starts the server and blocks until the context is cancelled. It kicks
// off initial discovery of every registered service, runs the scheduler and
// the configuration watcher, and serves the MCP endpoint at /mcp and the
// event stream at /events.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initial discovery runs in the background so a dead backend cannot
	// delay startup.
	for _, record := range a.Registry.Snapshot() {
		go func(serviceID string) {
			if _, err := a.Registry.Discover(ctx, serviceID); err != nil {
				logging.Warn("Bootstrap", "Initial discovery of %s failed: %v", serviceID, err)
			}
		}(record.Descriptor.ID)
	}

	a.Scheduler.Start(ctx)
	defer a.Scheduler.Stop()

	watcher, err := config.NewWatcher(a.configPath, a.onConfigChange)
	if err != nil {
		logging.Warn("Bootstrap", "Configuration watching disabled: %v", err)
	} else {
		go watcher.Run(ctx)
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", a.MCP.Handler())
	mux.Handle("/events", events.Handler(a.Bus))

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "Listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Server", "Shutdown incomplete: %v", err)
	}
	logging.Info("Server", "Stopped")
	return nil
}

// onConfigChange re-reads the changed configuration file on the running
// server. Service edits re-register descriptors; workflow edits replace
// definitions. config.yaml changes need a restart and are only logged.
func (a *Application) onConfigChange(filename string) {
	switch filename {
	case "services.yaml":
		if err := a.loadServices(); err != nil {
			logging.Error("ConfigWatcher", err, "Service reload failed")
			return
		}
		// Fresh registrations start over in the discovering status.
		for _, record := range a.Registry.Snapshot() {
			if record.Status == api.StatusDiscovering {
				go a.Registry.Discover(context.Background(), record.Descriptor.ID)
			}
		}
	case "workflows.yaml":
		if err := a.loadWorkflows(); err != nil {
			logging.Error("ConfigWatcher", err, "Workflow reload failed")
		}
	default:
		logging.Info("ConfigWatcher", "%s changed; restart to apply server settings", filename)
	}
}
