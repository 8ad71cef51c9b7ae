// Package config loads the infraops configuration directory.
//
// A configuration directory holds up to three files, all optional:
//
//	config.yaml     server address and engine settings
//	services.yaml   the services to register
//	workflows.yaml  additional workflow definitions
//
// Missing files fall back to defaults; malformed files are errors. The
// Watcher in watcher.go notices edits to these files so the running server
// can re-register services and reload workflows without a restart.
package config
