package functions

import "github.com/vk/blueprintgo/internal/parseerr"

// GetInput resolves a top-level configuration input by name. Inputs are
// resolved once, at template time; runtime evaluation is refused.
type GetInput struct {
	base
	InputName string
}

// Name implements Function.
func (f *GetInput) Name() string { return "get_input" }

// ParseArgs implements Function; the single argument must be a string.
func (f *GetInput) ParseArgs(args any) error {
	name, ok := args.(string)
	if !ok {
		return parseerr.FunctionEvaluation(f.Name(),
			"get_input function argument should be a string in %v but is '%v'.", f.context, args)
	}
	f.InputName = name
	return nil
}

// Validate implements Function.
func (f *GetInput) Validate(plan *Plan) error {
	if _, ok := plan.Inputs[f.InputName]; !ok {
		return parseerr.UnknownInput(
			"get_input function references an unknown input '%s' in %s.", f.InputName, f.path)
	}
	return nil
}

// Evaluate implements Function.
func (f *GetInput) Evaluate(plan *Plan) (any, error) {
	value, ok := plan.Inputs[f.InputName]
	if !ok {
		return nil, parseerr.UnknownInput(
			"get_input function references an unknown input '%s' in %s.", f.InputName, f.path)
	}
	return value, nil
}

// EvaluateRuntime implements Function; get_input has no runtime semantics.
func (f *GetInput) EvaluateRuntime(storage *RuntimeEvaluationStorage) (any, error) {
	return nil, parseerr.FunctionEvaluation(f.Name(),
		"runtime evaluation for %s is not supported", f.Name())
}
