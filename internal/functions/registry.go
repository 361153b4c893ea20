package functions

import (
	"github.com/vk/blueprintgo/internal/dslversion"
	"github.com/vk/blueprintgo/internal/parseerr"
)

// Node references with special meaning inside expressions.
const (
	SelfRef   = "SELF"
	SourceRef = "SOURCE"
	TargetRef = "TARGET"
)

// Function is one recognized intrinsic expression instance. Implementations
// are transient: created while scanning a document and discarded after one
// evaluation pass.
type Function interface {
	// Name is the registered expression name, e.g. "get_input".
	Name() string
	// ParseArgs checks the raw argument shape, failing fast on malformed
	// arguments.
	ParseArgs(args any) error
	// Validate statically checks the expression against the parsed plan.
	Validate(plan *Plan) error
	// Evaluate resolves the expression at template time when legal,
	// otherwise returns the raw unevaluated form to stay symbolic.
	Evaluate(plan *Plan) (any, error)
	// EvaluateRuntime resolves the expression against live instance data.
	EvaluateRuntime(storage *RuntimeEvaluationStorage) (any, error)
}

// Constructor creates an empty Function of one kind, ready for binding and
// argument parsing.
type Constructor func() Function

// Registry maps expression names to their constructors. Registries are
// plain values injected into the engine, so hosts with different function
// sets can coexist in one process.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register binds a function kind to a name, replacing any previous binding.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// Unregister removes a name binding if present.
func (r *Registry) Unregister(name string) {
	delete(r.constructors, name)
}

// Parse recognizes an intrinsic expression in a raw value: a single-key
// mapping whose key matches a registered name. Anything else is returned
// unchanged. A recognized expression with malformed arguments is an error.
func (r *Registry) Parse(raw any, scope string, context map[string]any, path string) (any, error) {
	mapping, ok := raw.(map[string]any)
	if !ok || len(mapping) != 1 {
		return raw, nil
	}
	var name string
	var args any
	for key, value := range mapping {
		name, args = key, value
	}
	ctor, ok := r.constructors[name]
	if !ok {
		return raw, nil
	}
	fn := ctor()
	if b, ok := fn.(binder); ok {
		b.bind(r, scope, context, path, raw)
	}
	if err := fn.ParseArgs(args); err != nil {
		return nil, err
	}
	return fn, nil
}

// binder is implemented by the embedded base of every function kind.
type binder interface {
	bind(registry *Registry, scope string, context map[string]any, path string, raw any)
}

// base carries the ambient data every expression instance is created with.
type base struct {
	registry *Registry
	scope    string
	context  map[string]any
	path     string
	raw      any

	// supportedSince gates the function behind a minimum DSL version.
	supportedSince *dslversion.Version
}

func (b *base) bind(registry *Registry, scope string, context map[string]any, path string, raw any) {
	b.registry = registry
	b.scope = scope
	b.context = context
	b.path = path
	b.raw = raw
}

// validateVersion fails when the plan declares a version older than the one
// that introduced this function.
func (b *base) validateVersion(name string, version *dslversion.Version) error {
	if b.supportedSince == nil || version == nil {
		return nil
	}
	if version.Less(b.supportedSince) {
		return parseerr.FunctionEvaluation(name,
			"Using %s requires using dsl version %s or greater, but found: %s in %s.",
			name, b.supportedSince, version, b.path)
	}
	return nil
}

var defaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("get_input", func() Function { return &GetInput{} })
	r.Register("get_property", func() Function { return &GetProperty{} })
	r.Register("get_attribute", func() Function { return &GetAttribute{} })
	r.Register("concat", func() Function { return newConcat() })
	return r
}

// Default returns the process-wide registry carrying the built-in function
// set. Convenience callers use it implicitly; embedding hosts should build
// their own with NewRegistry.
func Default() *Registry {
	return defaultRegistry
}

// Register binds a function kind on the default registry.
func Register(name string, ctor Constructor) {
	defaultRegistry.Register(name, ctor)
}

// Unregister removes a name binding from the default registry.
func Unregister(name string) {
	defaultRegistry.Unregister(name)
}
