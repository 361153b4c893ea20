package template

import (
	"fmt"
	"sort"

	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/schema"
)

var workflowMapping = &schema.ElementType{
	Name:     "workflow_mapping",
	Schema:   schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
	Required: true,
}

var workflowParameters = &schema.ElementType{
	Name:       "workflow_parameters",
	Schema:     schema.Dict{Type: SchemaProperty},
	DictResult: true,
}

// Workflow is one workflow declaration: either a bare mapping string, or a
// record carrying the mapping and a parameters schema. Its parsed value is
// the resolved plugin invocation.
var Workflow = &schema.ElementType{
	Name: "workflow",
	Schema: schema.Alternatives{
		schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
		schema.Record{
			"mapping":    workflowMapping,
			"parameters": workflowParameters,
		},
	},
	Requires: map[string][]schema.Requirement{
		Plugins.Name: {schema.Value("plugins")},
		schema.RequiresInputs: {
			{Name: "resource_base", Optional: true},
		},
	},
	Parse: func(e *schema.Element, args schema.Args) (any, error) {
		plugins, _ := args["plugins"].(map[string]any)
		resourceBase, _ := args["resource_base"].(string)
		if mapping, ok := e.Initial.(string); ok {
			return ResolveWorkflowOperation(plugins, e.Name, mapping, nil, resourceBase)
		}
		declaration := e.BuildDictResult()
		mapping, _ := declaration["mapping"].(string)
		parameters, _ := declaration["parameters"].(map[string]any)
		return ResolveWorkflowOperation(plugins, e.Name, mapping, parameters, resourceBase)
	},
}

// Workflows is the top-level workflows table. Besides the parsed table it
// provides the deduplicated set of plugin declarations the workflows use,
// for the host to install.
var Workflows = &schema.ElementType{
	Name:       "workflows",
	Schema:     schema.Dict{Type: Workflow},
	DictResult: true,
	Requires: map[string][]schema.Requirement{
		Plugins.Name: {schema.Value("plugins")},
	},
	Provides: []string{"workflow_plugins_to_install"},
	CalculateProvided: func(e *schema.Element, args schema.Args) (map[string]any, error) {
		plugins, _ := args["plugins"].(map[string]any)
		used := make(map[string]bool)
		for _, workflow := range e.Children() {
			operation, ok := workflow.Value.(map[string]any)
			if !ok {
				continue
			}
			if plugin, _ := operation["plugin"].(string); plugin != "" {
				used[plugin] = true
			}
		}
		names := make([]string, 0, len(used))
		for name := range used {
			names = append(names, name)
		}
		sort.Strings(names)
		toInstall := make([]any, 0, len(names))
		for _, name := range names {
			declaration, ok := plugins[name]
			if !ok {
				return nil, fmt.Errorf("%w: workflow resolved to undeclared plugin '%s'",
					parseerr.ErrIllegalState, name)
			}
			toInstall = append(toInstall, declaration)
		}
		return map[string]any{"workflow_plugins_to_install": toInstall}, nil
	},
}
