// Package application hosts the normalization engine: a pure function from
// raw connector records plus a mapping rule to canonical, timestamp-ordered
// points with field-level diagnostics and replay-verifiable content hashes.
package application

import (
	"errors"
	"fmt"
	"sort"
	"time"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/transform"
)

// RuleSource is the engine's sole coupling to configuration data.
type RuleSource interface {
	Get(id string) (*normalization.MappingRule, bool)
}

// Engine normalizes raw record batches. It owns no state beyond the rule
// source, never mutates its inputs, and is safe for concurrent use.
type Engine struct {
	rules RuleSource
}

// NewEngine constructs an Engine.
func NewEngine(rules RuleSource) (*Engine, error) {
	if rules == nil {
		return nil, errors.New("engine: nil rule source")
	}
	return &Engine{rules: rules}, nil
}

// Normalize converts a batch of raw records into a NormalizationResult.
// Failures never escape as errors: every problem down to a single malformed
// field surfaces as a diagnostic on the result. A bad record is skipped and
// counted; only an unknown rule aborts the whole call.
func (e *Engine) Normalize(records []any, ruleID string, nctx normalization.NormalizationContext) normalization.NormalizationResult {
	started := time.Now()

	result := normalization.NormalizationResult{
		Points:      []normalization.CanonicalPoint{},
		Diagnostics: []normalization.FieldDiagnostic{},
	}
	result.Stats.InputRecords = len(records)
	result.InputHash = hashRecords(records)

	rule, ok := e.rules.Get(ruleID)
	if !ok {
		result.Diagnostics = append(result.Diagnostics,
			normalization.NewDiagnostic("rule", normalization.CodeMappingNotFound,
				fmt.Sprintf("mapping rule %q is not registered", ruleID)).
				WithRemediation("register the rule before normalizing"))
		result.Stats.SkippedRecords = len(records)
		result.Stats.ErrorCount = 1
		result.OutputHash = hashPoints(nil)
		result.Stats.Duration = time.Since(started)
		return result
	}

	meta := normalization.ProcessingMeta{
		ConnectorID: nctx.ConnectorID,
		BatchID:     nctx.BatchID,
		IngestedAt:  nctx.IngestedAt.UTC(),
	}

	var seen map[uint64]struct{}
	if len(rule.DedupeKeys) > 0 {
		seen = make(map[uint64]struct{}, len(records))
	}

	for i, raw := range records {
		record, ok := raw.(map[string]any)
		if !ok {
			result.Diagnostics = append(result.Diagnostics,
				normalization.NewDiagnostic(recordField(i, ""), normalization.CodeNormalizationFailed,
					"record is not an object").
					WithRaw(raw).
					WithExpected("a key/value object"))
			result.Stats.SkippedRecords++
			continue
		}

		// Filtered records are excluded silently; exclusion is not an error.
		if !matchesFilters(record, rule.Filters) {
			result.Stats.SkippedRecords++
			continue
		}

		if seen != nil {
			key := dedupeKey(record, rule.DedupeKeys)
			if _, dup := seen[key]; dup {
				result.Stats.SkippedRecords++
				continue
			}
			seen[key] = struct{}{}
		}

		ts, diag := resolveTimestamp(record, rule.TimestampMapping, recordField(i, rule.TimestampMapping.SourcePath))
		if diag != nil {
			result.Diagnostics = append(result.Diagnostics, *diag)
			result.Stats.SkippedRecords++
			continue
		}

		value, diag := evaluateMapping(record, rule.ValueMapping, recordField(i, rule.ValueMapping.SourcePath))
		if diag != nil {
			if rule.ValueMapping.Required {
				result.Diagnostics = append(result.Diagnostics, *diag)
				result.Stats.SkippedRecords++
				continue
			}
			// Same downgrade as non-required extras: the record survives
			// with a nil value and a warning.
			diag.Severity = normalization.SeverityWarning
			result.Diagnostics = append(result.Diagnostics, *diag)
			value = nil
		}

		point := normalization.CanonicalPoint{
			Timestamp: ts,
			Value:     value,
			Meta:      meta,
		}
		for k, v := range rule.SeriesMetadata {
			if point.Tags == nil {
				point.Tags = make(map[string]string)
			}
			point.Tags[k] = v
		}

		for _, m := range rule.ExtraMappings {
			field := recordField(i, m.SourcePath)
			extra, diag := evaluateMapping(record, m, field)
			if diag != nil {
				// Partial failures omit the field but keep the record.
				if !m.Required {
					diag.Severity = normalization.SeverityWarning
				}
				result.Diagnostics = append(result.Diagnostics, *diag)
				continue
			}
			if extra == nil {
				continue
			}
			assignExtra(&point, m, extra, field, &result)
		}

		result.Points = append(result.Points, point)
	}

	// Stable ascending sort; ties keep original processing order. The sorted
	// list must be identical across repeated calls on the same input.
	sort.SliceStable(result.Points, func(a, b int) bool {
		return result.Points[a].Timestamp < result.Points[b].Timestamp
	})

	result.OutputHash = hashPoints(result.Points)
	result.Stats.OutputPoints = len(result.Points)
	for _, d := range result.Diagnostics {
		switch d.Severity {
		case normalization.SeverityError:
			result.Stats.ErrorCount++
		case normalization.SeverityWarning:
			result.Stats.WarningCount++
		}
	}
	result.Success = result.Stats.ErrorCount == 0 && len(result.Points) > 0
	result.Stats.Duration = time.Since(started)
	return result
}

// assignExtra places a mapped value onto the point by role. Value-role
// fields must be numeric; everything else lands in tags as text.
func assignExtra(point *normalization.CanonicalPoint, m normalization.FieldMapping, value any, field string, result *normalization.NormalizationResult) {
	role := m.Role
	if role == "" {
		role = normalization.RoleValue
	}
	switch role {
	case normalization.RoleValue:
		n, ok := transform.Numeric(value)
		if !ok {
			result.Diagnostics = append(result.Diagnostics,
				normalization.NewDiagnostic(field, normalization.CodeValueParseFailed,
					fmt.Sprintf("additional value %q is not numeric", m.Target)).
					WithRaw(value).
					WithExpected("number").
					WithSeverity(normalization.SeverityWarning))
			return
		}
		if point.Values == nil {
			point.Values = make(map[string]float64)
		}
		point.Values[m.Target] = n
	case normalization.RoleTag, normalization.RoleLabel, normalization.RoleMetadata:
		if point.Tags == nil {
			point.Tags = make(map[string]string)
		}
		point.Tags[m.Target] = transform.Stringify(value)
	}
}

func recordField(index int, path string) string {
	if path == "" {
		return fmt.Sprintf("records[%d]", index)
	}
	return fmt.Sprintf("records[%d].%s", index, path)
}
