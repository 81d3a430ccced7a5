// Package transform implements the closed set of value transforms used by
// field mappings. All transforms are pure; none touch anything beyond their
// input value and declared parameters.
package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	normalization "connector-hub/internal/normalization/domain"
)

// Apply runs exactly one named transform over a raw value. The kind must
// come from the closed set; rule validation rejects anything else before a
// rule can reach the engine.
func Apply(kind normalization.TransformKind, params map[string]any, value any) (any, error) {
	switch kind {
	case normalization.TransformNone, "":
		return value, nil
	case normalization.TransformLowercase:
		return strings.ToLower(Stringify(value)), nil
	case normalization.TransformUppercase:
		return strings.ToUpper(Stringify(value)), nil
	case normalization.TransformTrim:
		return strings.TrimSpace(Stringify(value)), nil
	case normalization.TransformParseNumber:
		n, ok := Numeric(value)
		if !ok {
			return nil, fmt.Errorf("transform parse_number: %q is not numeric", Stringify(value))
		}
		return n, nil
	case normalization.TransformParseBoolean:
		return parseBoolean(value)
	case normalization.TransformParseDate:
		return parseDate(value)
	case normalization.TransformMultiply:
		return arithmetic(kind, params, value)
	case normalization.TransformDivide:
		return arithmetic(kind, params, value)
	case normalization.TransformAdd:
		return arithmetic(kind, params, value)
	case normalization.TransformSubtract:
		return arithmetic(kind, params, value)
	case normalization.TransformRegexExtract:
		return regexExtract(params, value)
	case normalization.TransformJSONPath:
		return jsonPath(params, value)
	case normalization.TransformTemplate:
		return applyTemplate(params, value)
	case normalization.TransformLookup:
		return lookup(params, value), nil
	case normalization.TransformCoalesce:
		return coalesce(params, value), nil
	case normalization.TransformDefault:
		if value == nil {
			return params["defaultValue"], nil
		}
		return value, nil
	}
	// The cases above cover every member of TransformKinds, and rule
	// validation rejects any kind outside that set before a rule can reach
	// the engine. Reaching here means a case was not added alongside a new
	// TransformKind constant.
	return nil, fmt.Errorf("transform: unknown kind %q", kind)
}

var truthy = map[string]bool{"true": true, "1": true, "yes": true, "on": true}
var falsy = map[string]bool{"false": true, "0": true, "no": true, "off": true}

func parseBoolean(value any) (any, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	s := strings.ToLower(strings.TrimSpace(Stringify(value)))
	if truthy[s] {
		return true, nil
	}
	if falsy[s] {
		return false, nil
	}
	return nil, fmt.Errorf("transform parse_boolean: %q is not a boolean", Stringify(value))
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(value any) (any, error) {
	s := strings.TrimSpace(Stringify(value))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().UnixMilli(), nil
		}
	}
	return nil, fmt.Errorf("transform parse_date: cannot parse %q", s)
}

func arithmetic(kind normalization.TransformKind, params map[string]any, value any) (any, error) {
	input, ok := Numeric(value)
	if !ok {
		return nil, fmt.Errorf("transform %s: %q is not numeric", kind, Stringify(value))
	}
	operand, ok := Numeric(params["value"])
	if !ok {
		return nil, fmt.Errorf("transform %s: missing numeric value param", kind)
	}

	var result float64
	switch kind {
	case normalization.TransformMultiply:
		result = input * operand
	case normalization.TransformDivide:
		if operand == 0 {
			return nil, fmt.Errorf("transform divide: division by zero")
		}
		result = input / operand
	case normalization.TransformAdd:
		result = input + operand
	case normalization.TransformSubtract:
		result = input - operand
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return nil, fmt.Errorf("transform %s: non-finite result", kind)
	}
	return result, nil
}

func regexExtract(params map[string]any, value any) (any, error) {
	pattern, _ := params["pattern"].(string)
	if pattern == "" {
		return nil, fmt.Errorf("transform regex_extract: missing pattern param")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("transform regex_extract: %v", err)
	}
	match := re.FindStringSubmatch(Stringify(value))
	switch {
	case match == nil:
		return nil, nil
	case len(match) > 1:
		return match[1], nil
	default:
		return match[0], nil
	}
}

func jsonPath(params map[string]any, value any) (any, error) {
	path, _ := params["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("transform json_path: missing path param")
	}
	current := value
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("transform json_path: %q does not traverse an object", path)
		}
		current, ok = obj[key]
		if !ok {
			return nil, nil
		}
	}
	return current, nil
}

func applyTemplate(params map[string]any, value any) (any, error) {
	tpl, _ := params["template"].(string)
	if tpl == "" {
		return nil, fmt.Errorf("transform template: missing template param")
	}
	return strings.ReplaceAll(tpl, "{{value}}", Stringify(value)), nil
}

// lookup passes the original value through unchanged on a table miss.
func lookup(params map[string]any, value any) any {
	table, _ := params["table"].(map[string]any)
	if table == nil {
		return value
	}
	if mapped, ok := table[Stringify(value)]; ok {
		return mapped
	}
	return value
}

func coalesce(params map[string]any, value any) any {
	if value != nil {
		return value
	}
	values, _ := params["values"].([]any)
	for _, candidate := range values {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

// Numeric coerces a value to a finite float64.
func Numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return finite(parsed)
	}
	return 0, false
}

func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Stringify renders a value the way diagnostics and string transforms see it.
// Floats use the shortest round-trip form so output is stable.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
