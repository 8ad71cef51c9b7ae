package workflow

// ConditionFunc decides, from a step's result and the workflow parameters,
// whether later steps should run. It must be a pure function.
type ConditionFunc func(stepResult interface{}, params map[string]interface{}) bool

// condition pairs the predicate with the message reported when it stops a
// workflow.
type condition struct {
	eval        ConditionFunc
	stopMessage string
}

// builtinConditions are the continuation predicates available to step
// definitions.
func builtinConditions() map[string]condition {
	return map[string]condition{
		// artifacts_present continues only when the step result carries a
		// non-empty file listing.
		"artifacts_present": {
			eval: func(stepResult interface{}, _ map[string]interface{}) bool {
				return len(fileNames(stepResult)) > 0
			},
			stopMessage: "no files were written",
		},

		// result_not_empty continues when the step produced any result.
		"result_not_empty": {
			eval: func(stepResult interface{}, _ map[string]interface{}) bool {
				if stepResult == nil {
					return false
				}
				switch v := stepResult.(type) {
				case string:
					return v != ""
				case []interface{}:
					return len(v) > 0
				case map[string]interface{}:
					return len(v) > 0
				default:
					return true
				}
			},
			stopMessage: "step produced no result",
		},

		// succeeded continues unless the step result reports success=false.
		"succeeded": {
			eval: func(stepResult interface{}, _ map[string]interface{}) bool {
				result, ok := stepResult.(map[string]interface{})
				if !ok {
					return true
				}
				success, ok := result["success"].(bool)
				return !ok || success
			},
			stopMessage: "previous step reported failure",
		},
	}
}

// fileNames extracts a list of file names from a directory listing result.
// Backends report listings either as {"files": [...]} or {"entries": [...]},
// with elements as plain strings or {"name": ...} objects.
func fileNames(result interface{}) []string {
	listing, ok := result.(map[string]interface{})
	if !ok {
		return nil
	}

	raw, ok := listing["files"].([]interface{})
	if !ok {
		raw, ok = listing["entries"].([]interface{})
		if !ok {
			return nil
		}
	}

	var names []string
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			names = append(names, v)
		case map[string]interface{}:
			if name, ok := v["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}
