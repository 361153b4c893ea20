package template

import "github.com/vk/blueprintgo/internal/schema"

// Blueprint is the root element type of a blueprint document.
var Blueprint = &schema.ElementType{
	Name: "blueprint",
	Schema: schema.Record{
		"definitions_version": Version,
		"description":         Description,
		"inputs":              Inputs,
		"outputs":             Outputs,
		"plugins":             Plugins,
		"workflows":           Workflows,
	},
	DictResult: true,
}
