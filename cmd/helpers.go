package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"infraops/internal/api"
	"infraops/internal/app"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// newLocalApplication bootstraps the application for a one-shot CLI command.
// Logging is silenced unless --debug is set so command output stays clean.
func newLocalApplication(configPath string, debug bool) (*app.Application, error) {
	application, err := app.NewApplication(&app.Config{
		ConfigPath: configPath,
		Debug:      debug,
		Silent:     !debug,
	}, GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return application, nil
}

// newTable creates a table with the standard styling.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	return t
}

// newSpinner starts a progress spinner with the given suffix. The caller
// stops it.
func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + suffix
	s.Start()
	return s
}

// colorStatus renders a service status with a traffic-light color.
func colorStatus(status api.ServiceStatus) string {
	switch status {
	case api.StatusRunning:
		return text.FgGreen.Sprint(string(status))
	case api.StatusUnreachable:
		return text.FgRed.Sprint(string(status))
	case api.StatusDiscovering:
		return text.FgYellow.Sprint(string(status))
	default:
		return text.Faint.Sprint(string(status))
	}
}

// parseKeyValues turns k=v pairs into a parameter map. Values that parse as
// JSON keep their type; everything else stays a string.
func parseKeyValues(pairs []string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", pair)
		}
		var parsed interface{}
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			out[key] = parsed
		} else {
			out[key] = value
		}
	}
	return out, nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
