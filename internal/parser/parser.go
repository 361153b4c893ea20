// Package parser implements the schema-driven element graph processor: it
// builds a typed element tree from a raw document, orders the elements so
// that dependencies are processed before their dependents, and runs the
// three-phase validate/parse/provide pipeline over every element.
package parser

import (
	"context"
	"fmt"

	"github.com/vk/blueprintgo/internal/ctxlog"
	"github.com/vk/blueprintgo/internal/parseerr"
	"github.com/vk/blueprintgo/internal/schema"
)

// Parse validates and resolves a raw document against the given root element
// type. It returns the root element's parsed value, or the first structured
// error encountered. strict controls whether mapping keys absent from a
// fixed-record schema are rejected.
//
// Processing one document is a single synchronous call; the context carries
// a logger, not cancellation.
func Parse(ctx context.Context, raw any, rootType *schema.ElementType, rootName string, inputs map[string]any, strict bool) (any, error) {
	logger := ctxlog.FromContext(ctx)
	if err := schema.ValidateSchemaAPI(rootType); err != nil {
		return nil, err
	}
	pctx := NewContext(ctx, raw, rootType, rootName, inputs)
	order, err := pctx.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	logger.Debug("processing elements", "count", len(order))
	for _, element := range order {
		if err := processElement(pctx, element, strict); err != nil {
			// Attach the responsible element exactly once, here at the
			// outermost step, so raise sites need not know their element.
			if perr, ok := parseerr.As(err); ok && perr.Element == nil {
				perr.Element = element
			}
			return nil, err
		}
	}
	return pctx.ParsedValue(), nil
}

func processElement(c *Context, e *schema.Element, strict bool) error {
	if err := validateElementSchema(e, strict); err != nil {
		return err
	}
	args, err := extractElementRequirements(c, e)
	if err != nil {
		return err
	}
	if e.Type.Validate != nil {
		if err := e.Type.Validate(e, args); err != nil {
			return err
		}
	}
	if args.Bool("validate_version") && e.Type.ValidateVersion != nil {
		if err := e.Type.ValidateVersion(e, args["version"]); err != nil {
			return err
		}
	}
	if err := parseElementValue(e, args); err != nil {
		return err
	}
	return calculateElementProvided(e, args)
}

func parseElementValue(e *schema.Element, args schema.Args) error {
	if e.Type.Parse != nil {
		value, err := e.Type.Parse(e, args)
		if err != nil {
			return err
		}
		e.Value = value
		return nil
	}
	if e.Type.DictResult {
		e.Value = e.BuildDictResult()
		return nil
	}
	e.Value = e.Initial
	return nil
}

func calculateElementProvided(e *schema.Element, args schema.Args) error {
	if e.Type.CalculateProvided == nil {
		e.Provided = map[string]any{}
		return nil
	}
	provided, err := e.Type.CalculateProvided(e, args)
	if err != nil {
		return err
	}
	if provided == nil {
		provided = map[string]any{}
	}
	e.Provided = provided
	return nil
}

// validateElementSchema checks an element's raw value against its type's
// descriptor. For alternatives, the first descriptor that validates wins and
// the last alternative's error is surfaced when none do.
func validateElementSchema(e *schema.Element, strict bool) error {
	if e.Type.Required && e.Initial == nil {
		return parseerr.Format(parseerr.CodeFormat,
			"'%s' key is required but it is currently missing", e.Name)
	}
	if e.Initial == nil {
		return nil
	}
	alternatives, ok := e.Type.Schema.(schema.Alternatives)
	if !ok {
		return validateValue(e.Type.Schema, strict, e)
	}
	var lastErr error
	for _, item := range alternatives {
		lastErr = validateValue(item, strict, e)
		if lastErr == nil {
			return nil
		}
	}
	if lastErr == nil {
		return fmt.Errorf("%w: empty alternatives should have been rejected by schema API validation", parseerr.ErrIllegalState)
	}
	return lastErr
}

func validateValue(d schema.Descriptor, strict bool, e *schema.Element) error {
	value := e.Initial
	switch desc := d.(type) {
	case schema.Record:
		if err := validateMappingValue(value); err != nil {
			return err
		}
		if !strict {
			return nil
		}
		mapping, _ := asStringMap(value)
		for _, key := range sortedMapKeys(mapping) {
			if _, declared := desc[key]; declared {
				continue
			}
			perr := parseerr.Format(parseerr.CodeFormat,
				"'%s' is not in schema. Valid schema values: %v", key, sortedRecordKeys(desc))
			// Attach the offending child for precise diagnostics when the
			// traversal created one.
			if child, ok := e.Child(key); ok {
				perr.Element = child
			}
			return perr
		}
		return nil
	case schema.Dict:
		return validateMappingValue(value)
	case schema.List:
		if _, ok := value.([]any); !ok {
			return parseerr.Format(parseerr.CodeFormat,
				"Expected 'list' type but found '%s' type", schema.KindName(value))
		}
		return nil
	case schema.Leaf:
		kind, ok := schema.KindOf(value)
		if ok {
			for _, accepted := range desc.Kinds {
				if kind == accepted {
					return nil
				}
			}
		}
		return parseerr.Format(parseerr.CodeFormat,
			"Expected %s type but found '%s' type", expectedKinds(desc.Kinds), schema.KindName(value))
	case schema.UnknownSchema:
		return nil
	default:
		return fmt.Errorf("%w: descriptor %T should have been rejected by schema API validation", parseerr.ErrIllegalState, d)
	}
}

func validateMappingValue(value any) error {
	switch mapping := value.(type) {
	case map[string]any:
		return nil
	case map[any]any:
		for key := range mapping {
			if _, ok := key.(string); !ok {
				return parseerr.Format(parseerr.CodeFormat,
					"Dict keys must be strings but found '%v' of type '%s'", key, schema.KindName(key))
			}
		}
		return nil
	default:
		return parseerr.Format(parseerr.CodeFormat,
			"Expected 'dict' type but found '%s' type", schema.KindName(value))
	}
}

func expectedKinds(kinds []schema.Kind) string {
	if len(kinds) == 1 {
		return fmt.Sprintf("'%s'", kinds[0])
	}
	names := make([]string, len(kinds))
	for i, kind := range kinds {
		names[i] = kind.String()
	}
	return fmt.Sprintf("one of %v", names)
}
