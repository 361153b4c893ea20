package functions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/blueprintgo/internal/dslversion"
	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/scan"
)

func testPlan() *Plan {
	return &Plan{
		Inputs: map[string]any{"threshold": 10, "x": "b"},
		NodeTemplates: []map[string]any{
			{
				"name": "web",
				"properties": map[string]any{
					"port":  8080,
					"hosts": []any{"first", "second"},
					"deep":  map[string]any{"inner": "value"},
				},
			},
			{
				"name":       "db",
				"properties": map[string]any{"port": 5432},
			},
		},
		Outputs:   map[string]any{},
		Version:   dslversion.V1_2,
		Workflows: map[string]any{},
	}
}

func parseFunction(t *testing.T, raw any, scope string, context map[string]any) Function {
	t.Helper()
	parsed, err := Default().Parse(raw, scope, context, "test.path")
	require.NoError(t, err)
	fn, ok := parsed.(Function)
	require.True(t, ok, "expected %v to parse into a function", raw)
	return fn
}

func TestRegistryParse(t *testing.T) {
	t.Run("non-expressions pass through", func(t *testing.T) {
		for _, raw := range []any{
			"scalar",
			5,
			[]any{"a"},
			map[string]any{"two": 1, "keys": 2},
			map[string]any{"unregistered_name": "x"},
		} {
			parsed, err := Default().Parse(raw, scan.NodeTemplateScope, nil, "p")
			require.NoError(t, err)
			assert.Equal(t, raw, parsed)
		}
	})

	t.Run("registered single-key mapping parses", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_input": "threshold"}, scan.OutputsScope, nil)
		assert.Equal(t, "get_input", fn.Name())
	})

	t.Run("malformed arguments fail fast", func(t *testing.T) {
		_, err := Default().Parse(map[string]any{"get_input": 5}, scan.OutputsScope, nil, "p")
		require.Error(t, err)
	})

	t.Run("custom registry is independent", func(t *testing.T) {
		registry := NewRegistry()
		parsed, err := registry.Parse(map[string]any{"get_input": "threshold"}, scan.OutputsScope, nil, "p")
		require.NoError(t, err)
		_, isFunction := parsed.(Function)
		assert.False(t, isFunction)
	})
}

func TestGetInput(t *testing.T) {
	plan := testPlan()

	t.Run("known input evaluates", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_input": "threshold"}, scan.OutputsScope, nil)
		require.NoError(t, fn.Validate(plan))
		value, err := fn.Evaluate(plan)
		require.NoError(t, err)
		assert.Equal(t, 10, value)
	})

	t.Run("unknown input fails naming it", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_input": "missing"}, scan.OutputsScope, nil)
		err := fn.Validate(plan)
		require.Error(t, err)
		perr, ok := parseerr.As(err)
		require.True(t, ok)
		assert.Equal(t, parseerr.KindUnknownInput, perr.Kind)
		assert.Contains(t, perr.Message, "missing")
	})

	t.Run("runtime evaluation refused", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_input": "threshold"}, scan.OutputsScope, nil)
		_, err := fn.EvaluateRuntime(NewRuntimeEvaluationStorage(nil, nil, nil))
		require.Error(t, err)
	})
}

func TestGetProperty(t *testing.T) {
	plan := testPlan()

	t.Run("explicit node reference", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"web", "port"}}, scan.OutputsScope, nil)
		value, err := fn.Evaluate(plan)
		require.NoError(t, err)
		assert.Equal(t, 8080, value)
	})

	t.Run("nested path with list index", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"web", "hosts", 1}}, scan.OutputsScope, nil)
		value, err := fn.Evaluate(plan)
		require.NoError(t, err)
		assert.Equal(t, "second", value)
	})

	t.Run("non-integer list index is a type error", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"web", "hosts", "one"}}, scan.OutputsScope, nil)
		_, err := fn.Evaluate(plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected one to be an int")
	})

	t.Run("index out of range", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"web", "hosts", 7}}, scan.OutputsScope, nil)
		_, err := fn.Evaluate(plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("missing property names node and path", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"web", "nope"}}, scan.OutputsScope, nil)
		_, err := fn.Evaluate(plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "web.properties.nope")
	})

	t.Run("unknown node reference", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"ghost", "port"}}, scan.OutputsScope, nil)
		err := fn.Validate(plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("SELF resolves the ambient node template", func(t *testing.T) {
		node, _ := plan.NodeTemplate("web")
		fn := parseFunction(t, map[string]any{"get_property": []any{"SELF", "port"}}, scan.NodeTemplateScope, node)
		value, err := fn.Evaluate(plan)
		require.NoError(t, err)
		assert.Equal(t, 8080, value)
	})

	t.Run("SELF outside node template scope fails", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"get_property": []any{"SELF", "port"}}, scan.OutputsScope, nil)
		_, err := fn.Evaluate(plan)
		require.Error(t, err)
	})

	t.Run("TARGET resolves via the relationship", func(t *testing.T) {
		node, _ := plan.NodeTemplate("web")
		context := map[string]any{
			"node_template": node,
			"relationship":  map[string]any{"target_id": "db"},
		}
		fn := parseFunction(t, map[string]any{"get_property": []any{"TARGET", "port"}}, scan.NodeTemplateRelationshipScope, context)
		value, err := fn.Evaluate(plan)
		require.NoError(t, err)
		assert.Equal(t, 5432, value)
	})
}

func TestConcat(t *testing.T) {
	plan := testPlan()
	engine := NewEngine(nil)

	t.Run("wrong dsl version rejected", func(t *testing.T) {
		old := testPlan()
		old.Version = dslversion.V1_0
		fn := parseFunction(t, map[string]any{"concat": []any{"a", "b"}}, scan.OutputsScope, nil)
		err := fn.Validate(old)
		require.Error(t, err)
		assert.Contains(t, err.Error(), dslversion.V1_1.String())
	})

	t.Run("non-list argument rejected", func(t *testing.T) {
		_, err := Default().Parse(map[string]any{"concat": "ab"}, scan.OutputsScope, nil, "p")
		require.Error(t, err)
	})

	t.Run("static join through the driver", func(t *testing.T) {
		payload := map[string]any{
			"joined": map[string]any{"concat": []any{"a", map[string]any{"get_input": "x"}}},
		}
		handler := engine.PlanEvaluationHandler(plan)
		require.NoError(t, scan.Properties(payload, handler, scan.OutputsScope, map[string]any{}, "p", true))
		assert.Equal(t, "ab", payload["joined"])
	})

	t.Run("unresolvable part keeps the raw form", func(t *testing.T) {
		raw := map[string]any{"concat": []any{"a", map[string]any{"get_attribute": []any{"db", "port"}}}}
		fn := parseFunction(t, raw, scan.OutputsScope, map[string]any{})
		value, err := fn.Evaluate(plan)
		require.NoError(t, err)
		assert.Equal(t, raw, value)
	})

	t.Run("runtime join", func(t *testing.T) {
		fn := parseFunction(t, map[string]any{"concat": []any{"port:", 5432}}, scan.OutputsScope, map[string]any{})
		value, err := fn.EvaluateRuntime(NewRuntimeEvaluationStorage(nil, nil, nil))
		require.NoError(t, err)
		assert.Equal(t, "port:5432", value)
	})
}

func instanceStore(instances map[string][]*NodeInstance, nodes map[string]*Node) (*RuntimeEvaluationStorage, *int) {
	calls := 0
	byID := make(map[string]*NodeInstance)
	for _, list := range instances {
		for _, instance := range list {
			byID[instance.ID] = instance
		}
	}
	storage := NewRuntimeEvaluationStorage(
		func(nodeID string) ([]*NodeInstance, error) {
			calls++
			return instances[nodeID], nil
		},
		func(instanceID string) (*NodeInstance, error) {
			calls++
			instance, ok := byID[instanceID]
			if !ok {
				return nil, fmt.Errorf("no instance %q", instanceID)
			}
			return instance, nil
		},
		func(nodeID string) (*Node, error) {
			calls++
			node, ok := nodes[nodeID]
			if !ok {
				return nil, fmt.Errorf("no node %q", nodeID)
			}
			return node, nil
		},
	)
	return storage, &calls
}

func TestGetAttributeRuntime(t *testing.T) {
	t.Run("single instance resolves deterministically", func(t *testing.T) {
		storage, _ := instanceStore(
			map[string][]*NodeInstance{
				"db": {{ID: "db_1", NodeID: "db", RuntimeProperties: map[string]any{"port": 5432}}},
			},
			map[string]*Node{"db": {ID: "db"}},
		)
		fn := parseFunction(t, map[string]any{"get_attribute": []any{"db", "port"}}, scan.OutputsScope, map[string]any{})
		for i := 0; i < 5; i++ {
			value, err := fn.EvaluateRuntime(storage)
			require.NoError(t, err)
			assert.Equal(t, 5432, value)
		}
	})

	t.Run("falls back to node properties", func(t *testing.T) {
		storage, _ := instanceStore(
			map[string][]*NodeInstance{
				"db": {{ID: "db_1", NodeID: "db", RuntimeProperties: map[string]any{}}},
			},
			map[string]*Node{"db": {ID: "db", Properties: map[string]any{"port": 5432}}},
		)
		fn := parseFunction(t, map[string]any{"get_attribute": []any{"db", "port"}}, scan.OutputsScope, map[string]any{})
		value, err := fn.EvaluateRuntime(storage)
		require.NoError(t, err)
		assert.Equal(t, 5432, value)
	})

	t.Run("missing node fails", func(t *testing.T) {
		storage, _ := instanceStore(map[string][]*NodeInstance{}, map[string]*Node{})
		fn := parseFunction(t, map[string]any{"get_attribute": []any{"ghost", "port"}}, scan.OutputsScope, map[string]any{})
		_, err := fn.EvaluateRuntime(storage)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("relationship disambiguation", func(t *testing.T) {
		// Two live db instances; the evaluating app instance relates to
		// exactly one of them.
		storage, _ := instanceStore(
			map[string][]*NodeInstance{
				"db": {
					{ID: "db_1", NodeID: "db", RuntimeProperties: map[string]any{"port": 1111}},
					{ID: "db_2", NodeID: "db", RuntimeProperties: map[string]any{"port": 2222}},
				},
				"app": {
					{
						ID:     "app_1",
						NodeID: "app",
						Relationships: []InstanceRelationship{
							{TargetName: "db", TargetID: "db_2"},
						},
					},
				},
			},
			map[string]*Node{"db": {ID: "db"}, "app": {ID: "app"}},
		)
		context := map[string]any{"self": "app_1"}
		fn := parseFunction(t, map[string]any{"get_attribute": []any{"db", "port"}}, scan.NodeTemplateScope, context)
		value, err := fn.EvaluateRuntime(storage)
		require.NoError(t, err)
		assert.Equal(t, 2222, value)
	})

	t.Run("scaling group disambiguation", func(t *testing.T) {
		storage, _ := instanceStore(
			map[string][]*NodeInstance{
				"db": {
					{
						ID: "db_1", NodeID: "db",
						RuntimeProperties: map[string]any{"port": 1111},
						ScalingGroups:     []ScalingGroupMembership{{Name: "group", ID: "group_1"}},
					},
					{
						ID: "db_2", NodeID: "db",
						RuntimeProperties: map[string]any{"port": 2222},
						ScalingGroups:     []ScalingGroupMembership{{Name: "group", ID: "group_2"}},
					},
				},
				"app": {
					{
						ID: "app_1", NodeID: "app",
						ScalingGroups: []ScalingGroupMembership{{Name: "group", ID: "group_2"}},
					},
				},
			},
			map[string]*Node{"db": {ID: "db"}, "app": {ID: "app"}},
		)
		context := map[string]any{"self": "app_1"}
		fn := parseFunction(t, map[string]any{"get_attribute": []any{"db", "port"}}, scan.NodeTemplateScope, context)
		value, err := fn.EvaluateRuntime(storage)
		require.NoError(t, err)
		assert.Equal(t, 2222, value)
	})

	t.Run("unresolvable ambiguity fails", func(t *testing.T) {
		storage, _ := instanceStore(
			map[string][]*NodeInstance{
				"db": {
					{ID: "db_1", NodeID: "db"},
					{ID: "db_2", NodeID: "db"},
				},
			},
			map[string]*Node{"db": {ID: "db"}},
		)
		fn := parseFunction(t, map[string]any{"get_attribute": []any{"db", "port"}}, scan.NodeTemplateScope, map[string]any{})
		_, err := fn.EvaluateRuntime(storage)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot resolve a node instance unambiguously")
	})
}

func TestGetAttributeScopes(t *testing.T) {
	plan := testPlan()
	cases := []struct {
		ref   string
		scope string
		legal bool
	}{
		{SelfRef, scan.NodeTemplateScope, true},
		{SelfRef, scan.NodeTemplateRelationshipScope, false},
		{SelfRef, scan.OutputsScope, false},
		{SourceRef, scan.NodeTemplateRelationshipScope, true},
		{SourceRef, scan.NodeTemplateScope, false},
		{TargetRef, scan.NodeTemplateRelationshipScope, true},
		{TargetRef, scan.OutputsScope, false},
	}
	for _, c := range cases {
		t.Run(c.ref+" in "+c.scope, func(t *testing.T) {
			fn := parseFunction(t, map[string]any{"get_attribute": []any{c.ref, "port"}}, c.scope, map[string]any{})
			err := fn.Validate(plan)
			if c.legal {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGetAttributeStaticStaysSymbolic(t *testing.T) {
	plan := testPlan()
	operation := map[string]any{}
	context := map[string]any{"operation": operation}
	raw := map[string]any{"get_attribute": []any{"db", "port"}}
	fn := parseFunction(t, raw, scan.OutputsScope, context)

	value, err := fn.Evaluate(plan)
	require.NoError(t, err)
	assert.Equal(t, raw, value)
	assert.Equal(t, true, operation["has_intrinsic_functions"])
}

func TestStorageMemoizes(t *testing.T) {
	storage, calls := instanceStore(
		map[string][]*NodeInstance{
			"db": {{ID: "db_1", NodeID: "db"}},
		},
		map[string]*Node{"db": {ID: "db"}},
	)

	for i := 0; i < 3; i++ {
		_, err := storage.NodeInstances("db")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, *calls)

	// Instances fetched by node are indexed by id already.
	_, err := storage.NodeInstance("db_1")
	require.NoError(t, err)
	assert.Equal(t, 1, *calls)

	_, err = storage.Node("db")
	require.NoError(t, err)
	_, err = storage.Node("db")
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestEvaluateOutputs(t *testing.T) {
	storage := map[string][]*NodeInstance{
		"db": {{ID: "db_1", NodeID: "db", RuntimeProperties: map[string]any{"port": 5432}}},
	}
	nodes := map[string]*Node{"db": {ID: "db"}}
	engine := NewEngine(nil)

	outputs, err := engine.EvaluateOutputs(
		context.Background(),
		map[string]any{
			"endpoint": map[string]any{
				"value": map[string]any{"get_attribute": []any{"db", "port"}},
			},
			"static": map[string]any{"value": "fixed"},
		},
		func(nodeID string) ([]*NodeInstance, error) { return storage[nodeID], nil },
		func(instanceID string) (*NodeInstance, error) { return storage["db"][0], nil },
		func(nodeID string) (*Node, error) { return nodes[nodeID], nil },
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"endpoint": 5432, "static": "fixed"}, outputs)
}

func TestEvaluateFunctionsFixedPoint(t *testing.T) {
	// A concat whose parts resolve at runtime, nested under a mapping.
	storage := map[string][]*NodeInstance{
		"db": {{ID: "db_1", NodeID: "db", RuntimeProperties: map[string]any{"host": "localhost", "port": 5432}}},
	}
	nodes := map[string]*Node{"db": {ID: "db"}}
	engine := NewEngine(nil)

	payload := map[string]any{
		"address": map[string]any{"concat": []any{
			map[string]any{"get_attribute": []any{"db", "host"}},
			":",
			map[string]any{"get_attribute": []any{"db", "port"}},
		}},
	}
	result, err := engine.EvaluateFunctions(context.Background(), payload, nil,
		func(nodeID string) ([]*NodeInstance, error) { return storage[nodeID], nil },
		func(instanceID string) (*NodeInstance, error) { return storage["db"][0], nil },
		func(nodeID string) (*Node, error) { return nodes[nodeID], nil },
	)
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", result["address"])
}

func TestValidateFunctions(t *testing.T) {
	t.Run("valid plan passes and is unchanged", func(t *testing.T) {
		plan := testPlan()
		raw := map[string]any{"get_property": []any{"db", "port"}}
		plan.NodeTemplates[0]["properties"].(map[string]any)["db_port"] = raw

		engine := NewEngine(nil)
		require.NoError(t, engine.ValidateFunctions(context.Background(), plan))

		// Intermediate substitutions are reverted.
		properties := plan.NodeTemplates[0]["properties"].(map[string]any)
		assert.Equal(t, raw, properties["db_port"])
	})

	t.Run("invalid reference surfaces", func(t *testing.T) {
		plan := testPlan()
		plan.NodeTemplates[0]["properties"].(map[string]any)["bad"] =
			map[string]any{"get_property": []any{"ghost", "port"}}

		engine := NewEngine(nil)
		err := engine.ValidateFunctions(context.Background(), plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("circular get_property detected", func(t *testing.T) {
		plan := &Plan{
			Inputs: map[string]any{},
			NodeTemplates: []map[string]any{
				{
					"name": "a",
					"properties": map[string]any{
						"x": map[string]any{"get_property": []any{"b", "y"}},
					},
				},
				{
					"name": "b",
					"properties": map[string]any{
						"y": map[string]any{"get_property": []any{"a", "x"}},
					},
				},
			},
			Outputs: map[string]any{},
			Version: dslversion.V1_2,
		}
		engine := NewEngine(nil)
		err := engine.ValidateFunctions(context.Background(), plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Circular get_property function call detected")
		assert.Contains(t, err.Error(), "a.x")
		assert.Contains(t, err.Error(), "b.y")
	})

	t.Run("circular chain through a nested container detected", func(t *testing.T) {
		plan := &Plan{
			Inputs: map[string]any{},
			NodeTemplates: []map[string]any{
				{
					"name": "a",
					"properties": map[string]any{
						"x": map[string]any{
							"nested": map[string]any{"get_property": []any{"b", "y"}},
						},
					},
				},
				{
					"name": "b",
					"properties": map[string]any{
						"y": map[string]any{"get_property": []any{"a", "x"}},
					},
				},
			},
			Outputs: map[string]any{},
			Version: dslversion.V1_2,
		}
		engine := NewEngine(nil)
		err := engine.ValidateFunctions(context.Background(), plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Circular get_property function call detected")
	})

	t.Run("operation inputs are scanned", func(t *testing.T) {
		plan := testPlan()
		plan.NodeTemplates[0]["operations"] = map[string]any{
			"configure": map[string]any{
				"inputs": map[string]any{
					"bad": map[string]any{"get_input": "absent"},
				},
			},
		}
		engine := NewEngine(nil)
		err := engine.ValidateFunctions(context.Background(), plan)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "absent")
	})
}
