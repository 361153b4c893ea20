package template

import "github.com/vk/blueprintgo/internal/schema"

var outputValue = &schema.ElementType{
	Name:     "output_value",
	Schema:   schema.UnknownSchema{},
	Required: true,
}

// Output is one named deployment output: a required value, which may embed
// intrinsic expressions, and an optional description.
var Output = &schema.ElementType{
	Name: "output",
	Schema: schema.Record{
		"description": Description,
		"value":       outputValue,
	},
	DictResult: true,
}

// Outputs is the top-level outputs table.
var Outputs = &schema.ElementType{
	Name:       "outputs",
	Schema:     schema.Dict{Type: Output},
	DictResult: true,
}
