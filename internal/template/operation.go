package template

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/blueprintgo/internal/fsutil"
	"github.com/vk/blueprintgo/internal/parseerr"
)

// Script plugin wiring. Any operation mapped to a script file on disk is
// rewritten to an invocation of the script plugin, with the script path
// injected as a parameter.
const (
	ScriptPluginName                = "script"
	ScriptPluginExecuteWorkflowTask = "script_runner.tasks.execute_workflow"
	ScriptPathProperty              = "script_path"
)

// NoOpOperation is the parsed form of an empty operation mapping.
func NoOpOperation() map[string]any {
	return map[string]any{
		"plugin":                  "",
		"operation":               "",
		"parameters":              map[string]any{},
		"has_intrinsic_functions": false,
	}
}

func workflowOperation(plugin, operation string, parameters map[string]any) map[string]any {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return map[string]any{
		"plugin":                  plugin,
		"operation":               operation,
		"parameters":              parameters,
		"has_intrinsic_functions": false,
	}
}

// ResolveWorkflowOperation turns a workflow's mapping string into a concrete
// plugin invocation. A mapping prefixed by exactly one declared plugin name
// maps to that plugin; a mapping naming a script file under resourceBase
// maps to the script plugin; anything else is unresolvable.
func ResolveWorkflowOperation(plugins map[string]any, workflowName, mapping string, parameters map[string]any, resourceBase string) (map[string]any, error) {
	if mapping == "" {
		return NoOpOperation(), nil
	}

	candidates := matchingPlugins(plugins, mapping)
	if len(candidates) > 1 {
		return nil, parseerr.Logic(parseerr.CodeAmbiguousOperationMapping,
			"Ambiguous operation mapping '%s' in workflow '%s'. Matching plugins: %v.",
			mapping, workflowName, candidates)
	}
	if len(candidates) == 1 {
		plugin := candidates[0]
		operation := strings.TrimPrefix(mapping, plugin+".")
		return workflowOperation(plugin, operation, parameters), nil
	}

	if resourceBase != "" && fsutil.Exists(filepath.Join(resourceBase, mapping)) {
		return resolveScriptOperation(plugins, workflowName, mapping, parameters)
	}

	return nil, parseerr.Logic(parseerr.CodeWorkflowNoPlugin,
		"Could not extract plugin from workflow mapping '%s', which is declared for workflow '%s'.",
		mapping, workflowName)
}

func resolveScriptOperation(plugins map[string]any, workflowName, mapping string, parameters map[string]any) (map[string]any, error) {
	if _, declared := plugins[ScriptPluginName]; !declared {
		return nil, parseerr.Logic(parseerr.CodeMissingScriptPlugin,
			"Workflow '%s' is mapped to the script '%s' but the '%s' plugin is not declared.",
			workflowName, mapping, ScriptPluginName)
	}
	if _, reserved := parameters[ScriptPathProperty]; reserved {
		return nil, parseerr.Logic(parseerr.CodeReservedScriptPath,
			"Workflow '%s' is mapped to a script and may not declare the reserved '%s' parameter.",
			workflowName, ScriptPathProperty)
	}
	merged := make(map[string]any, len(parameters)+1)
	for name, declaration := range parameters {
		merged[name] = declaration
	}
	merged[ScriptPathProperty] = map[string]any{"default": mapping}
	return workflowOperation(ScriptPluginName, ScriptPluginExecuteWorkflowTask, merged), nil
}

// matchingPlugins returns the declared plugin names that prefix the mapping,
// in sorted order.
func matchingPlugins(plugins map[string]any, mapping string) []string {
	var matches []string
	for name := range plugins {
		if strings.HasPrefix(mapping, name+".") {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}
