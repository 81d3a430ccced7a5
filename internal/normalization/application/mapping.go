package application

import (
	"fmt"
	"regexp"
	"strings"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/transform"
)

// resolvePath walks a dotted source path through nested objects. It reports
// not-found when any intermediate value is absent or not an object.
func resolvePath(record map[string]any, path string) (any, bool) {
	var current any = record
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// evaluateMapping resolves one field mapping against a record. A nil
// diagnostic means the returned value is usable; the value may still be nil
// for an absent optional field without a default.
func evaluateMapping(record map[string]any, m normalization.FieldMapping, field string) (any, *normalization.FieldDiagnostic) {
	raw, found := resolvePath(record, m.SourcePath)
	if !found || raw == nil {
		if m.Required {
			d := normalization.NewDiagnostic(field, normalization.CodeMissingRequiredField,
				fmt.Sprintf("required field %q is missing", m.SourcePath)).
				WithRemediation("check the source path or mark the mapping optional")
			return nil, &d
		}
		if m.Transform == normalization.TransformDefault {
			if def, ok := m.Params["defaultValue"]; ok {
				return def, nil
			}
		}
		return nil, nil
	}

	value, err := transform.Apply(m.Transform, m.Params, raw)
	if err != nil {
		d := normalization.NewDiagnostic(field, normalization.CodeTypeCoercionFailed, err.Error()).
			WithRaw(raw).
			WithExpected(expectedForTransform(m.Transform))
		return nil, &d
	}

	if m.Constraint != nil {
		if d := checkConstraint(*m.Constraint, value, field); d != nil {
			d.RawValue = raw
			return nil, d
		}
	}
	return value, nil
}

func expectedForTransform(kind normalization.TransformKind) string {
	switch kind {
	case normalization.TransformParseNumber, normalization.TransformMultiply,
		normalization.TransformDivide, normalization.TransformAdd,
		normalization.TransformSubtract:
		return "numeric value"
	case normalization.TransformParseBoolean:
		return "one of true/false/1/0/yes/no/on/off"
	case normalization.TransformParseDate:
		return "ISO-8601 date or datetime"
	default:
		return ""
	}
}

// checkConstraint validates in fixed order: type, range, pattern, enum.
// The first failure wins.
func checkConstraint(c normalization.ValidationConstraint, value any, field string) *normalization.FieldDiagnostic {
	if c.Type != "" {
		if ok := typeCompatible(c.Type, value); !ok {
			d := normalization.NewDiagnostic(field, normalization.CodeTypeCoercionFailed,
				fmt.Sprintf("value is not of type %q", c.Type)).
				WithExpected(c.Type)
			return &d
		}
	}
	if c.Min != nil || c.Max != nil {
		n, ok := transform.Numeric(value)
		if !ok {
			d := normalization.NewDiagnostic(field, normalization.CodeTypeCoercionFailed,
				"range constraint requires a numeric value").
				WithExpected("number")
			return &d
		}
		if c.Min != nil && n < *c.Min {
			d := normalization.NewDiagnostic(field, normalization.CodeValueOutOfRange,
				fmt.Sprintf("value %v is below minimum %v", n, *c.Min))
			return &d
		}
		if c.Max != nil && n > *c.Max {
			d := normalization.NewDiagnostic(field, normalization.CodeValueOutOfRange,
				fmt.Sprintf("value %v is above maximum %v", n, *c.Max))
			return &d
		}
	}
	if c.Pattern != "" {
		re, err := regexp.Compile(c.Pattern)
		if err != nil || !re.MatchString(transform.Stringify(value)) {
			d := normalization.NewDiagnostic(field, normalization.CodeSchemaMismatch,
				fmt.Sprintf("value does not match pattern %q", c.Pattern)).
				WithExpected(c.Pattern)
			return &d
		}
	}
	if len(c.Enum) > 0 {
		for _, allowed := range c.Enum {
			if looseEqual(value, allowed) {
				return nil
			}
		}
		d := normalization.NewDiagnostic(field, normalization.CodeSchemaMismatch,
			"value is not a member of the allowed set")
		return &d
	}
	return nil
}

func typeCompatible(typeTag string, value any) bool {
	switch typeTag {
	case "number":
		_, ok := transform.Numeric(value)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	default:
		return true
	}
}

// looseEqual compares numerically when both sides coerce to numbers,
// otherwise by stringified value.
func looseEqual(a, b any) bool {
	na, aok := transform.Numeric(a)
	nb, bok := transform.Numeric(b)
	if aok && bok {
		return na == nb
	}
	return transform.Stringify(a) == transform.Stringify(b)
}
