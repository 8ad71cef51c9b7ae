package workflow

import (
	"context"
	"fmt"
	"path"

	"infraops/internal/api"
	"infraops/pkg/logging"
)

// InternalAction is a built-in step handler dispatched by name for
// StepInternal steps. Actions see the execution record so they can build on
// the results of earlier steps.
type InternalAction func(ctx context.Context, invoker ToolInvoker, execution *api.WorkflowExecution, args map[string]interface{}) (interface{}, error)

func builtinActions() map[string]InternalAction {
	return map[string]InternalAction{
		"copy_artifacts": copyArtifacts,
	}
}

// copyArtifacts copies every artifact from sourceDir to destDir through the
// filesystem service: it creates the destination directory, then reads and
// writes each file individually. Files that fail to read or write are
// skipped; the result reports exactly which files were copied.
func copyArtifacts(ctx context.Context, invoker ToolInvoker, execution *api.WorkflowExecution, args map[string]interface{}) (interface{}, error) {
	serviceID, err := stringArg(args, "serviceId")
	if err != nil {
		return nil, err
	}
	sourceDir, err := stringArg(args, "sourceDir")
	if err != nil {
		return nil, err
	}
	destDir, err := stringArg(args, "destDir")
	if err != nil {
		return nil, err
	}

	names, found := previousListing(execution)
	if !found {
		listing, err := invoker.Invoke(ctx, serviceID, "list_directory", map[string]interface{}{"path": sourceDir})
		if err != nil {
			return nil, fmt.Errorf("listing %s failed: %w", sourceDir, err)
		}
		names = fileNames(listing.Result)
	}

	if len(names) == 0 {
		return map[string]interface{}{
			"files":       []string{},
			"destination": destDir,
			"message":     "no files were written",
		}, nil
	}

	if _, err := invoker.Invoke(ctx, serviceID, "create_directory", map[string]interface{}{"path": destDir}); err != nil {
		return nil, fmt.Errorf("creating destination %s failed: %w", destDir, err)
	}

	copied := []string{}
	skipped := []string{}
	for _, name := range names {
		sourcePath := path.Join(sourceDir, name)
		read, err := invoker.Invoke(ctx, serviceID, "read_file", map[string]interface{}{"path": sourcePath})
		if err != nil {
			logging.Warn("Workflow", "Skipping artifact %s: read failed: %v", sourcePath, err)
			skipped = append(skipped, name)
			continue
		}

		write := map[string]interface{}{
			"path":    path.Join(destDir, name),
			"content": fileContent(read.Result),
		}
		if _, err := invoker.Invoke(ctx, serviceID, "write_file", write); err != nil {
			logging.Warn("Workflow", "Skipping artifact %s: write failed: %v", sourcePath, err)
			skipped = append(skipped, name)
			continue
		}
		copied = append(copied, name)
	}

	result := map[string]interface{}{
		"files":       copied,
		"destination": destDir,
		"message":     fmt.Sprintf("copied %d of %d artifacts", len(copied), len(names)),
	}
	if len(skipped) > 0 {
		result["skipped"] = skipped
	}
	return result, nil
}

// previousListing finds the most recent completed step whose result carries
// a directory listing, so the copy step reuses the listing that gated it.
func previousListing(execution *api.WorkflowExecution) ([]string, bool) {
	for i := len(execution.Steps) - 1; i >= 0; i-- {
		step := execution.Steps[i]
		if step.Status != api.StepCompleted {
			continue
		}
		if listing, ok := step.Result.(map[string]interface{}); ok {
			if _, has := listing["files"]; has {
				return fileNames(step.Result), true
			}
			if _, has := listing["entries"]; has {
				return fileNames(step.Result), true
			}
		}
	}
	return nil, false
}

// fileContent extracts the payload of a read_file result. Backends answer
// with {"content": "..."} or a bare string.
func fileContent(result interface{}) interface{} {
	if m, ok := result.(map[string]interface{}); ok {
		if content, has := m["content"]; has {
			return content
		}
	}
	return result
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, present := args[key]
	if !present {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}
