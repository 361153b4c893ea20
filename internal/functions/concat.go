package functions

import (
	"fmt"
	"strings"

	"github.com/vk/blueprintgo/internal/dslversion"
	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/scan"
)

// Concat joins a list of values into one string. Items may themselves be
// intrinsic expressions; as long as any item stays symbolic the whole concat
// stays symbolic too and is re-attempted at runtime.
type Concat struct {
	base
	Joined []any
}

func newConcat() *Concat {
	c := &Concat{}
	c.supportedSince = dslversion.V1_1
	return c
}

// Name implements Function.
func (f *Concat) Name() string { return "concat" }

// ParseArgs implements Function; the argument must be a list.
func (f *Concat) ParseArgs(args any) error {
	list, ok := args.([]any)
	if !ok {
		return parseerr.FunctionEvaluation(f.Name(),
			"Illegal arguments passed to %s function. Expected: [arg1, arg2, ...] but got: %v.",
			f.Name(), args)
	}
	f.Joined = list
	return nil
}

// Validate implements Function.
func (f *Concat) Validate(plan *Plan) error {
	if err := f.validateVersion(f.Name(), plan.Version); err != nil {
		return err
	}
	switch f.scope {
	case scan.NodeTemplateScope, scan.NodeTemplateRelationshipScope, scan.OutputsScope:
		return nil
	}
	return parseerr.FunctionEvaluation(f.Name(),
		"%s cannot be used in %s.", f.Name(), f.path)
}

// Evaluate implements Function. The join happens only once every item is
// fully resolved; while any item still parses into an expression the raw
// form is kept so the outer driver can resolve the items first.
func (f *Concat) Evaluate(plan *Plan) (any, error) {
	for _, item := range f.Joined {
		parsed, err := f.registry.Parse(item, f.scope, f.context, f.path)
		if err != nil {
			return nil, err
		}
		if _, symbolic := parsed.(Function); symbolic {
			if operation, ok := f.context["operation"].(map[string]any); ok {
				operation["has_intrinsic_functions"] = true
			}
			return f.raw, nil
		}
	}
	return joinParts(f.Joined), nil
}

// EvaluateRuntime implements Function.
func (f *Concat) EvaluateRuntime(storage *RuntimeEvaluationStorage) (any, error) {
	parts := make([]any, len(f.Joined))
	for i, item := range f.Joined {
		parsed, err := f.registry.Parse(item, f.scope, f.context, f.path)
		if err != nil {
			return nil, err
		}
		if fn, ok := parsed.(Function); ok {
			value, err := fn.EvaluateRuntime(storage)
			if err != nil {
				return nil, err
			}
			parts[i] = value
		} else {
			parts[i] = parsed
		}
	}
	return joinParts(parts), nil
}

func joinParts(parts []any) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(fmt.Sprint(part))
	}
	return b.String()
}
