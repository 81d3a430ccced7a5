package application

import (
	"reflect"
	"testing"
	"time"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/registry"
)

func testContext() normalization.NormalizationContext {
	return normalization.NormalizationContext{
		ConnectorID:   "conn-1",
		TenantID:      "tenant-a",
		BatchID:       "batch-1",
		CorrelationID: "corr-1",
		IngestedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func baseRule() normalization.MappingRule {
	return normalization.MappingRule{
		ID:      "rule-1",
		Name:    "Power readings",
		Version: 1,
		TimestampMapping: normalization.TimestampMapping{
			SourcePath: "ts",
			Format:     normalization.TimestampUnixMillis,
		},
		ValueMapping: normalization.FieldMapping{
			SourcePath: "power",
			Target:     "value",
			Transform:  normalization.TransformParseNumber,
			Required:   true,
		},
	}
}

func newTestEngine(t *testing.T, rules ...normalization.MappingRule) *Engine {
	t.Helper()
	reg := registry.NewRegistry()
	for _, rule := range rules {
		if err := reg.Register(rule); err != nil {
			t.Fatalf("register rule: %v", err)
		}
	}
	engine, err := NewEngine(reg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestNormalizeUnknownRule(t *testing.T) {
	engine := newTestEngine(t)
	records := []any{map[string]any{"ts": 1.0, "power": 2.0}}

	result := engine.Normalize(records, "nonexistent", testContext())
	if result.Success {
		t.Fatal("expected success=false for unknown rule")
	}
	if len(result.Points) != 0 {
		t.Fatalf("expected no points, got %d", len(result.Points))
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %d", len(result.Diagnostics))
	}
	if result.Diagnostics[0].Code != normalization.CodeMappingNotFound {
		t.Fatalf("expected MAPPING_NOT_FOUND, got %s", result.Diagnostics[0].Code)
	}
	if result.Stats.SkippedRecords != len(records) {
		t.Fatalf("expected all records skipped, got %d", result.Stats.SkippedRecords)
	}
}

func TestNormalizeHappyPath(t *testing.T) {
	engine := newTestEngine(t, baseRule())
	records := []any{
		map[string]any{"ts": 1704067201000.0, "power": "5.5"},
		map[string]any{"ts": 1704067200000.0, "power": 3.0},
	}

	result := engine.Normalize(records, "rule-1", testContext())
	if !result.Success {
		t.Fatalf("expected success, diagnostics: %+v", result.Diagnostics)
	}
	if len(result.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(result.Points))
	}
	// Ascending timestamp order regardless of input order.
	if result.Points[0].Timestamp != 1704067200000 || result.Points[1].Timestamp != 1704067201000 {
		t.Fatalf("points not sorted: %d, %d", result.Points[0].Timestamp, result.Points[1].Timestamp)
	}
	if result.Points[0].Value != 3.0 {
		t.Fatalf("expected value 3, got %v", result.Points[0].Value)
	}
	if result.Points[0].Meta.ConnectorID != "conn-1" || result.Points[0].Meta.BatchID != "batch-1" {
		t.Fatalf("unexpected meta: %+v", result.Points[0].Meta)
	}
}

func TestNormalizeDeterminism(t *testing.T) {
	engine := newTestEngine(t, baseRule())
	records := []any{
		map[string]any{"ts": 3.0, "power": 1.0, "extra": map[string]any{"b": 2.0, "a": 1.0}},
		map[string]any{"ts": 1.0, "power": 2.0},
		map[string]any{"ts": 2.0, "power": 3.0},
	}

	first := engine.Normalize(records, "rule-1", testContext())
	second := engine.Normalize(records, "rule-1", testContext())

	if !reflect.DeepEqual(first.Points, second.Points) {
		t.Fatal("points differ between identical runs")
	}
	if first.InputHash != second.InputHash {
		t.Fatalf("input hashes differ: %s vs %s", first.InputHash, second.InputHash)
	}
	if first.OutputHash != second.OutputHash {
		t.Fatalf("output hashes differ: %s vs %s", first.OutputHash, second.OutputHash)
	}
}

func TestNormalizeSortInvariant(t *testing.T) {
	engine := newTestEngine(t, baseRule())
	records := []any{
		map[string]any{"ts": 5.0, "power": 1.0},
		map[string]any{"ts": 2.0, "power": 2.0},
		map[string]any{"ts": 9.0, "power": 3.0},
		map[string]any{"ts": 2.0, "power": 4.0},
	}

	result := engine.Normalize(records, "rule-1", testContext())
	for i := 1; i < len(result.Points); i++ {
		if result.Points[i-1].Timestamp > result.Points[i].Timestamp {
			t.Fatalf("sort invariant violated at %d", i)
		}
	}
	// Stable sort: ties keep original processing order.
	if result.Points[0].Value != 2.0 || result.Points[1].Value != 4.0 {
		t.Fatalf("tie order not stable: %v, %v", result.Points[0].Value, result.Points[1].Value)
	}
}

func TestNormalizeRequiredFieldRejection(t *testing.T) {
	engine := newTestEngine(t, baseRule())
	records := []any{
		map[string]any{"ts": 1.0, "power": 1.0},
		map[string]any{"ts": 2.0},
	}

	result := engine.Normalize(records, "rule-1", testContext())
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if result.Stats.SkippedRecords != 1 {
		t.Fatalf("expected 1 skipped record, got %d", result.Stats.SkippedRecords)
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Code == normalization.CodeMissingRequiredField {
			found = true
		}
	}
	if !found {
		t.Fatal("expected MISSING_REQUIRED_FIELD diagnostic")
	}
	if result.Success {
		t.Fatal("error diagnostic must force success=false")
	}
}

func TestTimestampFormatParity(t *testing.T) {
	const wantMillis = int64(1704067200000)

	cases := []struct {
		name   string
		format normalization.TimestampFormat
		value  any
	}{
		{"unix seconds", normalization.TimestampUnixSeconds, 1704067200.0},
		{"unix millis", normalization.TimestampUnixMillis, 1704067200000.0},
		{"iso8601", normalization.TimestampISO8601, "2024-01-01T00:00:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := baseRule()
			rule.TimestampMapping.Format = tc.format
			engine := newTestEngine(t, rule)

			result := engine.Normalize([]any{map[string]any{"ts": tc.value, "power": 1.0}}, "rule-1", testContext())
			if len(result.Points) != 1 {
				t.Fatalf("expected 1 point, diagnostics: %+v", result.Diagnostics)
			}
			if result.Points[0].Timestamp != wantMillis {
				t.Fatalf("expected %d, got %d", wantMillis, result.Points[0].Timestamp)
			}
		})
	}
}

func TestTimestampFailureSkipsRecord(t *testing.T) {
	rule := baseRule()
	rule.TimestampMapping.Format = normalization.TimestampISO8601
	engine := newTestEngine(t, rule)

	result := engine.Normalize([]any{map[string]any{"ts": "not a date", "power": 1.0}}, "rule-1", testContext())
	if len(result.Points) != 0 {
		t.Fatal("expected record with bad timestamp to be skipped")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != normalization.CodeTimestampParseFailed {
		t.Fatalf("expected TIMESTAMP_PARSE_FAILED, got %+v", result.Diagnostics)
	}
}

func TestNormalizeFilters(t *testing.T) {
	rule := baseRule()
	rule.Filters = []normalization.FilterCondition{
		{Field: "status", Operator: normalization.OpEq, Value: "healthy"},
	}
	rule.ExtraMappings = []normalization.FieldMapping{
		{SourcePath: "status", Target: "status", Role: normalization.RoleTag},
	}
	engine := newTestEngine(t, rule)

	records := []any{
		map[string]any{"ts": 1.0, "power": 1.0, "status": "healthy"},
		map[string]any{"ts": 2.0, "power": 2.0, "status": "healthy"},
		map[string]any{"ts": 3.0, "power": 3.0, "status": "degraded"},
	}
	result := engine.Normalize(records, "rule-1", testContext())
	if len(result.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(result.Points))
	}
	for _, p := range result.Points {
		if p.Tags["status"] != "healthy" {
			t.Fatalf("expected status=healthy tag, got %v", p.Tags)
		}
	}
	// Filtering is not an error.
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", result.Diagnostics)
	}
	if !result.Success {
		t.Fatal("expected success")
	}
}

func TestNormalizeNonObjectRecord(t *testing.T) {
	engine := newTestEngine(t, baseRule())
	records := []any{"bogus", map[string]any{"ts": 1.0, "power": 1.0}}

	result := engine.Normalize(records, "rule-1", testContext())
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if result.Stats.SkippedRecords != 1 {
		t.Fatalf("expected 1 skipped record, got %d", result.Stats.SkippedRecords)
	}
	if result.Diagnostics[0].Code != normalization.CodeNormalizationFailed {
		t.Fatalf("expected NORMALIZATION_FAILED, got %s", result.Diagnostics[0].Code)
	}
}

func TestNormalizeExtraMappingPartialFailure(t *testing.T) {
	rule := baseRule()
	rule.ExtraMappings = []normalization.FieldMapping{
		{SourcePath: "temp", Target: "temperature", Transform: normalization.TransformParseNumber},
	}
	engine := newTestEngine(t, rule)

	records := []any{map[string]any{"ts": 1.0, "power": 1.0, "temp": "hot"}}
	result := engine.Normalize(records, "rule-1", testContext())

	// The record survives, the failed field is omitted.
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if _, ok := result.Points[0].Values["temperature"]; ok {
		t.Fatal("expected failed extra field to be omitted")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Severity != normalization.SeverityWarning {
		t.Fatalf("expected one warning diagnostic, got %+v", result.Diagnostics)
	}
	if !result.Success {
		t.Fatal("warnings must not gate success")
	}
}

func TestNormalizeDedupeKeys(t *testing.T) {
	rule := baseRule()
	rule.DedupeKeys = []string{"device", "ts"}
	engine := newTestEngine(t, rule)

	records := []any{
		map[string]any{"ts": 1.0, "power": 1.0, "device": "d1"},
		map[string]any{"ts": 1.0, "power": 9.0, "device": "d1"},
		map[string]any{"ts": 1.0, "power": 2.0, "device": "d2"},
	}
	result := engine.Normalize(records, "rule-1", testContext())
	if len(result.Points) != 2 {
		t.Fatalf("expected duplicate to be dropped, got %d points", len(result.Points))
	}
	// First occurrence wins.
	if result.Points[0].Value != 1.0 && result.Points[1].Value != 1.0 {
		t.Fatalf("expected first duplicate kept, got %+v", result.Points)
	}
	if result.Stats.SkippedRecords != 1 {
		t.Fatalf("expected 1 skipped, got %d", result.Stats.SkippedRecords)
	}
}

func TestNormalizeSeriesMetadataTags(t *testing.T) {
	rule := baseRule()
	rule.SeriesMetadata = map[string]string{"unit": "kW", "semantic": "power"}
	engine := newTestEngine(t, rule)

	result := engine.Normalize([]any{map[string]any{"ts": 1.0, "power": 1.0}}, "rule-1", testContext())
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if result.Points[0].Tags["unit"] != "kW" || result.Points[0].Tags["semantic"] != "power" {
		t.Fatalf("expected series metadata tags, got %v", result.Points[0].Tags)
	}
}

func TestNormalizeOptionalValueDefault(t *testing.T) {
	rule := baseRule()
	rule.ValueMapping = normalization.FieldMapping{
		SourcePath: "power",
		Target:     "value",
		Transform:  normalization.TransformDefault,
		Params:     map[string]any{"defaultValue": 0.0},
	}
	engine := newTestEngine(t, rule)

	result := engine.Normalize([]any{map[string]any{"ts": 1.0}}, "rule-1", testContext())
	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if result.Points[0].Value != 0.0 {
		t.Fatalf("expected default value, got %v", result.Points[0].Value)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", result.Diagnostics)
	}
}

func TestNormalizeOptionalValueFailureIsWarning(t *testing.T) {
	rule := baseRule()
	rule.ValueMapping.Required = false
	engine := newTestEngine(t, rule)

	result := engine.Normalize([]any{map[string]any{"ts": 1.0, "power": "hot"}}, "rule-1", testContext())
	if len(result.Points) != 1 {
		t.Fatalf("expected record to survive, got %d points", len(result.Points))
	}
	if result.Points[0].Value != nil {
		t.Fatalf("expected nil value after failed optional mapping, got %v", result.Points[0].Value)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Severity != normalization.SeverityWarning {
		t.Fatalf("expected one warning diagnostic, got %+v", result.Diagnostics)
	}
	if !result.Success {
		t.Fatal("optional value failure must not gate success")
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	engine := newTestEngine(t, baseRule())
	record := map[string]any{"ts": 1.0, "power": 2.0}
	records := []any{record}

	engine.Normalize(records, "rule-1", testContext())
	if len(record) != 2 || record["ts"] != 1.0 || record["power"] != 2.0 {
		t.Fatalf("input record mutated: %v", record)
	}
}

func TestNormalizeValidationConstraints(t *testing.T) {
	min, max := 0.0, 100.0
	rule := baseRule()
	rule.ValueMapping.Constraint = &normalization.ValidationConstraint{Type: "number", Min: &min, Max: &max}
	engine := newTestEngine(t, rule)

	result := engine.Normalize([]any{
		map[string]any{"ts": 1.0, "power": 50.0},
		map[string]any{"ts": 2.0, "power": 500.0},
	}, "rule-1", testContext())

	if len(result.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(result.Points))
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != normalization.CodeValueOutOfRange {
		t.Fatalf("expected VALUE_OUT_OF_RANGE, got %+v", result.Diagnostics)
	}
}
