package normalization

import (
	"errors"
	"fmt"
	"regexp"
)

// TransformKind names one transform from the closed transform set.
type TransformKind string

const (
	TransformNone         TransformKind = "none"
	TransformLowercase    TransformKind = "lowercase"
	TransformUppercase    TransformKind = "uppercase"
	TransformTrim         TransformKind = "trim"
	TransformParseNumber  TransformKind = "parse_number"
	TransformParseBoolean TransformKind = "parse_boolean"
	TransformParseDate    TransformKind = "parse_date"
	TransformMultiply     TransformKind = "multiply"
	TransformDivide       TransformKind = "divide"
	TransformAdd          TransformKind = "add"
	TransformSubtract     TransformKind = "subtract"
	TransformRegexExtract TransformKind = "regex_extract"
	TransformJSONPath     TransformKind = "json_path"
	TransformTemplate     TransformKind = "template"
	TransformLookup       TransformKind = "lookup"
	TransformCoalesce     TransformKind = "coalesce"
	TransformDefault      TransformKind = "default"
)

// TransformKinds lists every member of the closed transform set.
var TransformKinds = []TransformKind{
	TransformNone,
	TransformLowercase,
	TransformUppercase,
	TransformTrim,
	TransformParseNumber,
	TransformParseBoolean,
	TransformParseDate,
	TransformMultiply,
	TransformDivide,
	TransformAdd,
	TransformSubtract,
	TransformRegexExtract,
	TransformJSONPath,
	TransformTemplate,
	TransformLookup,
	TransformCoalesce,
	TransformDefault,
}

// Valid reports whether the kind belongs to the closed set.
func (k TransformKind) Valid() bool {
	for _, known := range TransformKinds {
		if k == known {
			return true
		}
	}
	return false
}

// TimestampFormat names one of the accepted timestamp encodings.
type TimestampFormat string

const (
	TimestampUnixSeconds TimestampFormat = "unix_seconds"
	TimestampUnixMillis  TimestampFormat = "unix_ms"
	TimestampISO8601     TimestampFormat = "iso8601"
)

// Valid reports whether the format is a known encoding.
func (f TimestampFormat) Valid() bool {
	switch f {
	case TimestampUnixSeconds, TimestampUnixMillis, TimestampISO8601:
		return true
	}
	return false
}

// MappingRole says where a mapped field lands on the canonical point.
type MappingRole string

const (
	RoleValue    MappingRole = "value"
	RoleTag      MappingRole = "tag"
	RoleLabel    MappingRole = "label"
	RoleMetadata MappingRole = "metadata"
)

// Valid reports whether the role is known.
func (r MappingRole) Valid() bool {
	switch r {
	case RoleValue, RoleTag, RoleLabel, RoleMetadata:
		return true
	}
	return false
}

// ValidationConstraint is an optional post-transform check on a mapped value.
// Checks run in order: type, range, pattern, enum; the first failure wins.
type ValidationConstraint struct {
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Enum    []any    `json:"enum,omitempty" yaml:"enum,omitempty"`
}

// FieldMapping converts one dotted source path into one target field.
type FieldMapping struct {
	SourcePath string                `json:"sourcePath" yaml:"sourcePath"`
	Target     string                `json:"target" yaml:"target"`
	Role       MappingRole           `json:"role,omitempty" yaml:"role,omitempty"`
	Transform  TransformKind         `json:"transform,omitempty" yaml:"transform,omitempty"`
	Params     map[string]any        `json:"params,omitempty" yaml:"params,omitempty"`
	Required   bool                  `json:"required,omitempty" yaml:"required,omitempty"`
	Constraint *ValidationConstraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// TimestampMapping locates and decodes the record timestamp.
type TimestampMapping struct {
	SourcePath string          `json:"sourcePath" yaml:"sourcePath"`
	Format     TimestampFormat `json:"format" yaml:"format"`
}

// FilterCondition is one predicate of a rule's filter conjunction.
type FilterCondition struct {
	Field    string         `json:"field" yaml:"field"`
	Operator FilterOperator `json:"operator" yaml:"operator"`
	Value    any            `json:"value" yaml:"value"`
}

// FilterOperator names one filter predicate.
type FilterOperator string

const (
	OpEq       FilterOperator = "eq"
	OpNe       FilterOperator = "ne"
	OpGt       FilterOperator = "gt"
	OpLt       FilterOperator = "lt"
	OpGte      FilterOperator = "gte"
	OpLte      FilterOperator = "lte"
	OpIn       FilterOperator = "in"
	OpContains FilterOperator = "contains"
	OpRegex    FilterOperator = "regex"
)

// Valid reports whether the operator is known.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpLt, OpGte, OpLte, OpIn, OpContains, OpRegex:
		return true
	}
	return false
}

// MappingRule declares how one source record shape becomes canonical points.
// Rules are immutable once registered; replacing the same ID supersedes the
// whole rule atomically.
type MappingRule struct {
	ID               string            `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	Version          int               `json:"version" yaml:"version"`
	SourceType       string            `json:"sourceType,omitempty" yaml:"sourceType,omitempty"`
	SeriesMetadata   map[string]string `json:"seriesMetadata,omitempty" yaml:"seriesMetadata,omitempty"`
	TimestampMapping TimestampMapping  `json:"timestampMapping" yaml:"timestampMapping"`
	ValueMapping     FieldMapping      `json:"valueMapping" yaml:"valueMapping"`
	ExtraMappings    []FieldMapping    `json:"extraMappings,omitempty" yaml:"extraMappings,omitempty"`
	Filters          []FilterCondition `json:"filters,omitempty" yaml:"filters,omitempty"`
	DedupeKeys       []string          `json:"dedupeKeys,omitempty" yaml:"dedupeKeys,omitempty"`
}

// Validate checks rule invariants before registration.
func (r MappingRule) Validate() error {
	if r.ID == "" {
		return errors.New("mapping rule: empty id")
	}
	if r.Name == "" {
		return errors.New("mapping rule: empty name")
	}
	if r.Version <= 0 {
		return errors.New("mapping rule: version must be positive")
	}
	if r.TimestampMapping.SourcePath == "" {
		return errors.New("mapping rule: timestamp mapping requires a source path")
	}
	if !r.TimestampMapping.Format.Valid() {
		return fmt.Errorf("mapping rule: unknown timestamp format %q", r.TimestampMapping.Format)
	}
	if err := validateFieldMapping(r.ValueMapping, "value mapping"); err != nil {
		return err
	}
	for i, m := range r.ExtraMappings {
		if err := validateFieldMapping(m, fmt.Sprintf("extra mapping %d", i)); err != nil {
			return err
		}
	}
	for i, f := range r.Filters {
		if f.Field == "" {
			return fmt.Errorf("mapping rule: filter %d has no field", i)
		}
		if !f.Operator.Valid() {
			return fmt.Errorf("mapping rule: filter %d has unknown operator %q", i, f.Operator)
		}
		if f.Operator == OpRegex {
			pattern, ok := f.Value.(string)
			if !ok {
				return fmt.Errorf("mapping rule: filter %d regex value must be a string", i)
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("mapping rule: filter %d has invalid regex: %v", i, err)
			}
		}
	}
	for i, key := range r.DedupeKeys {
		if key == "" {
			return fmt.Errorf("mapping rule: dedupe key %d is empty", i)
		}
	}
	return nil
}

func validateFieldMapping(m FieldMapping, label string) error {
	if m.SourcePath == "" {
		return fmt.Errorf("mapping rule: %s requires a source path", label)
	}
	if m.Target == "" {
		return fmt.Errorf("mapping rule: %s requires a target", label)
	}
	if m.Transform != "" && !m.Transform.Valid() {
		return fmt.Errorf("mapping rule: %s has unknown transform %q", label, m.Transform)
	}
	if m.Role != "" && !m.Role.Valid() {
		return fmt.Errorf("mapping rule: %s has unknown role %q", label, m.Role)
	}
	if m.Transform == TransformRegexExtract {
		pattern, _ := m.Params["pattern"].(string)
		if pattern == "" {
			return fmt.Errorf("mapping rule: %s regex_extract requires a pattern param", label)
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("mapping rule: %s has invalid regex: %v", label, err)
		}
	}
	if m.Constraint != nil && m.Constraint.Pattern != "" {
		if _, err := regexp.Compile(m.Constraint.Pattern); err != nil {
			return fmt.Errorf("mapping rule: %s has invalid constraint pattern: %v", label, err)
		}
	}
	return nil
}
