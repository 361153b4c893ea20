package loader

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// LoadHCL decodes an HCL blueprint into the raw document tree. Top-level
// attributes become mapping entries; blocks nest, with labels folded in as
// intermediate keys.
func LoadHCL(filename string, data []byte) (any, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decoding hcl blueprint: %w", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("decoding hcl blueprint: unexpected body type %T", file.Body)
	}
	return bodyToTree(body)
}

func bodyToTree(body *hclsyntax.Body) (map[string]any, error) {
	result := make(map[string]any)
	for name, attribute := range body.Attributes {
		value, diags := attribute.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating attribute %q: %w", name, diags)
		}
		native, err := ctyToNative(value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		result[name] = native
	}
	for _, block := range body.Blocks {
		nested, err := bodyToTree(block.Body)
		if err != nil {
			return nil, err
		}
		// Labels become intermediate mapping keys, innermost label last.
		value := any(nested)
		for i := len(block.Labels) - 1; i >= 0; i-- {
			value = map[string]any{block.Labels[i]: value}
		}
		if existing, ok := result[block.Type].(map[string]any); ok {
			if labeled, ok := value.(map[string]any); ok {
				for key, member := range labeled {
					existing[key] = member
				}
				continue
			}
		}
		result[block.Type] = value
	}
	return result, nil
}

// ctyToNative converts a cty value into the raw document vocabulary. Whole
// numbers become int, everything else numeric becomes float64.
func ctyToNative(value cty.Value) (any, error) {
	if value.IsNull() {
		return nil, nil
	}
	t := value.Type()
	switch {
	case t == cty.String:
		return value.AsString(), nil
	case t == cty.Bool:
		return value.True(), nil
	case t == cty.Number:
		f := value.AsBigFloat()
		if i, accuracy := f.Int64(); accuracy == big.Exact {
			return int(i), nil
		}
		result, _ := f.Float64()
		return result, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		result := make([]any, 0, value.LengthInt())
		for it := value.ElementIterator(); it.Next(); {
			_, member := it.Element()
			native, err := ctyToNative(member)
			if err != nil {
				return nil, err
			}
			result = append(result, native)
		}
		return result, nil
	case t.IsObjectType() || t.IsMapType():
		result := make(map[string]any, value.LengthInt())
		for it := value.ElementIterator(); it.Next(); {
			key, member := it.Element()
			native, err := ctyToNative(member)
			if err != nil {
				return nil, err
			}
			result[key.AsString()] = native
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported hcl value type %s", t.FriendlyName())
	}
}
