// Package logging provides a structured logging system for infraops with
// unified log handling and level filtering.
//
// The package wraps Go's standard slog package. Every log entry carries a
// subsystem identifier (Registry, Workflow, Scheduler, Events, Config, ...)
// so that output can be filtered by component.
//
// Initialize once at startup:
//
//	logging.Init(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Registry", "registered service %s", id)
//	logging.Error("Workflow", err, "execution %s failed", executionID)
//
// The logger is safe for concurrent use from multiple goroutines.
package logging
