package template

import (
	"github.com/vk/blueprintgo/internal/dslversion"
	"github.com/vk/blueprintgo/internal/schema"
)

// Version parses the mandatory definitions version declaration and provides
// the parsed version to every version-gated element.
var Version = &schema.ElementType{
	Name:     "definitions_version",
	Schema:   schema.Leaf{Kinds: []schema.Kind{schema.KindString}},
	Required: true,
	Provides: []string{"version"},
	Parse: func(e *schema.Element, args schema.Args) (any, error) {
		raw, _ := e.Initial.(string)
		return dslversion.Parse(raw)
	},
	CalculateProvided: func(e *schema.Element, args schema.Args) (map[string]any, error) {
		return map[string]any{"version": e.Value}, nil
	},
}

// versionRequirements is the requirement pair every version-gated element
// declares: the parsed version and the validate_version switch from the
// parse inputs.
func versionRequirements() map[string][]schema.Requirement {
	return map[string][]schema.Requirement{
		Version.Name: {{Name: "version", Optional: true}},
		schema.RequiresInputs: {
			{Name: "validate_version", Optional: true},
		},
	}
}
