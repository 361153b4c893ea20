package template

import (
	"github.com/vk/blueprintgo/internal/dslversion"
	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/schema"
)

// Executor values a plugin may declare.
const (
	ExecutorCentralDeploymentAgent = "central_deployment_agent"
	ExecutorHostAgent              = "host_agent"
)

var pluginExecutor = &schema.ElementType{
	Name:     "plugin_executor",
	Schema:   schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
	Required: true,
	Validate: func(e *schema.Element, args schema.Args) error {
		value, _ := e.Initial.(string)
		if value == ExecutorCentralDeploymentAgent || value == ExecutorHostAgent {
			return nil
		}
		return parseerr.Logic(parseerr.CodeIllegalExecutor,
			"Plugin '%s' has an illegal executor value '%s'. Executor must be one of [%s, %s].",
			pluginName(e), value, ExecutorCentralDeploymentAgent, ExecutorHostAgent)
	},
}

var pluginSource = &schema.ElementType{
	Name:   "plugin_source",
	Schema: schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
}

var pluginInstall = &schema.ElementType{
	Name:   "plugin_install",
	Schema: schema.Leaf{Kinds: []schema.Kind{schema.KindBoolean}},
}

var pluginInstallArguments = &schema.ElementType{
	Name:   "plugin_install_arguments",
	Schema: schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
}

// Plugin is one plugin declaration. Its parsed value is the declaration
// mapping with the plugin's own name folded in, so downstream consumers
// never need the surrounding key.
var Plugin = &schema.ElementType{
	Name: "plugin",
	Schema: schema.Record{
		"executor":          pluginExecutor,
		"source":            pluginSource,
		"install":           pluginInstall,
		"install_arguments": pluginInstallArguments,
	},
	Requires: versionRequirements(),
	ValidateVersion: func(e *schema.Element, version any) error {
		v, ok := version.(*dslversion.Version)
		if !ok || v == nil {
			return nil
		}
		if child, found := e.Child("install_arguments"); found && child.Initial != nil && v.Less(dslversion.V1_1) {
			return parseerr.Logic(parseerr.CodeIllegalExecutor,
				"Plugin '%s' uses 'install_arguments', which requires dsl version %s or greater, but found: %s.",
				e.Name, dslversion.V1_1, v)
		}
		return nil
	},
	Parse: func(e *schema.Element, args schema.Args) (any, error) {
		result := e.BuildDictResult()
		result["name"] = e.Name
		return result, nil
	},
}

// Plugins is the top-level plugins table; its parsed value maps plugin name
// to the parsed plugin declaration.
var Plugins = &schema.ElementType{
	Name:       "plugins",
	Schema:     schema.Dict{Type: Plugin},
	DictResult: true,
}

func pluginName(e *schema.Element) string {
	if parent := e.Parent(); parent != nil {
		return parent.Name
	}
	return e.Name
}
