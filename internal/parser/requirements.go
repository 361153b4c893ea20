package parser

import (
	"fmt"
	"sort"

	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/schema"
)

// extractElementRequirements gathers the values an element's hooks receive,
// pulling from already-processed dependency elements. Topological ordering
// guarantees every dependency has completed its full pipeline by now.
func extractElementRequirements(c *Context, e *schema.Element) (schema.Args, error) {
	args := schema.Args{}
	for _, requiredType := range sortedRequireKeys(e.Type.Requires) {
		requirements := e.Type.Requires[requiredType]
		if len(requirements) == 0 {
			// Pure ordering dependency; contributes edges, not values.
			continue
		}
		if requiredType == schema.RequiresInputs {
			if err := extractInputRequirements(c, requirements, args); err != nil {
				return nil, err
			}
			continue
		}
		resolvedType := requiredType
		if requiredType == schema.RequiresSelf {
			resolvedType = e.Type.Name
		}
		for _, req := range requirements {
			result, err := searchForRequirement(c.byType[resolvedType], req, e)
			if err != nil {
				return nil, err
			}
			collapsed, err := collapseRequirementResult(result, req)
			if err != nil {
				return nil, err
			}
			args[req.Name] = collapsed
		}
	}
	return args, nil
}

func extractInputRequirements(c *Context, requirements []schema.Requirement, args schema.Args) error {
	for _, req := range requirements {
		value, ok := c.Inputs[req.Name]
		if !ok && !req.Optional {
			return parseerr.Format(parseerr.CodeFormat,
				"Missing required input '%s'. Existing inputs: %v", req.Name, sortedInputNames(c.Inputs))
		}
		args[req.Name] = value
	}
	return nil
}

func searchForRequirement(candidates []*schema.Element, req schema.Requirement, e *schema.Element) ([]any, error) {
	var result []any
	for _, dependency := range candidates {
		if req.Predicate != nil && !req.Predicate(e, dependency) {
			continue
		}
		if req.Parsed {
			result = append(result, dependency.Value)
			continue
		}
		value, ok := dependency.Provided[req.Name]
		if !ok {
			if req.Optional {
				continue
			}
			return nil, parseerr.Format(parseerr.CodeFormat,
				"Required value '%s' is not provided by '%s'. Provided values are: %v",
				req.Name, dependency.Name, providedNames(dependency))
		}
		result = append(result, value)
	}
	return result, nil
}

// collapseRequirementResult reduces matches to a single value unless the
// requirement asked for multiple results. An optional requirement with no
// matches collapses to nil; more than one match for a single-result
// requirement that is optional is an internal-consistency failure, kept
// distinct from the ordinary missing-result error on purpose.
func collapseRequirementResult(result []any, req schema.Requirement) (any, error) {
	if req.MultipleResults {
		return result, nil
	}
	if len(result) == 1 {
		return result[0], nil
	}
	if !req.Optional {
		found := "none"
		if len(result) > 0 {
			found = fmt.Sprintf("%v", result)
		}
		return nil, parseerr.Format(parseerr.CodeFormat,
			"Expected exactly one result for requirement '%s' but found %s", req.Name, found)
	}
	if len(result) == 0 {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: requirement '%s' matched %d results",
		parseerr.ErrIllegalState, req.Name, len(result))
}

func providedNames(e *schema.Element) []string {
	names := make([]string, 0, len(e.Provided))
	for name := range e.Provided {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedInputNames(inputs map[string]any) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
