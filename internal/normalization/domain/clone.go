package normalization

// Clone returns a deep copy of the rule. Registered rules are treated as
// immutable snapshots; cloning keeps callers from mutating a rule already
// referenced by an in-flight normalize call.
func (r MappingRule) Clone() MappingRule {
	out := r
	out.SeriesMetadata = cloneStringMap(r.SeriesMetadata)
	out.TimestampMapping = r.TimestampMapping
	out.ValueMapping = r.ValueMapping.clone()
	if r.ExtraMappings != nil {
		out.ExtraMappings = make([]FieldMapping, len(r.ExtraMappings))
		for i, m := range r.ExtraMappings {
			out.ExtraMappings[i] = m.clone()
		}
	}
	if r.Filters != nil {
		out.Filters = make([]FilterCondition, len(r.Filters))
		for i, f := range r.Filters {
			out.Filters[i] = f
			out.Filters[i].Value = cloneValue(f.Value)
		}
	}
	if r.DedupeKeys != nil {
		out.DedupeKeys = append([]string(nil), r.DedupeKeys...)
	}
	return out
}

func (m FieldMapping) clone() FieldMapping {
	out := m
	if m.Params != nil {
		out.Params = make(map[string]any, len(m.Params))
		for k, v := range m.Params {
			out.Params[k] = cloneValue(v)
		}
	}
	if m.Constraint != nil {
		c := *m.Constraint
		if m.Constraint.Min != nil {
			min := *m.Constraint.Min
			c.Min = &min
		}
		if m.Constraint.Max != nil {
			max := *m.Constraint.Max
			c.Max = &max
		}
		if m.Constraint.Enum != nil {
			c.Enum = make([]any, len(m.Constraint.Enum))
			for i, v := range m.Constraint.Enum {
				c.Enum[i] = cloneValue(v)
			}
		}
		out.Constraint = &c
	}
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneValue(in any) any {
	switch v := in.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return in
	}
}
