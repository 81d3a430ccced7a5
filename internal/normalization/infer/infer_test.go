package infer

import (
	"testing"
)

func TestInferEmptyInput(t *testing.T) {
	schema := Infer(nil, 0)
	if len(schema.Fields) != 0 {
		t.Fatalf("expected no fields, got %d", len(schema.Fields))
	}
	if schema.SampledRecords != 0 {
		t.Fatalf("expected 0 sampled records, got %d", schema.SampledRecords)
	}
	if schema.SuggestedTimestamp != "" || schema.SuggestedValue != "" {
		t.Fatal("empty input must yield no suggestions")
	}
}

func TestInferSuggestions(t *testing.T) {
	records := []any{
		map[string]any{"timestamp": 1704067200.0, "power": 5.5, "deviceId": "d1"},
		map[string]any{"timestamp": 1704067201.0, "power": 6.0, "deviceId": "d2"},
		map[string]any{"timestamp": 1704067202.0, "power": nil, "deviceId": "d3"},
	}

	schema := Infer(records, 0)
	if schema.SampledRecords != 3 {
		t.Fatalf("expected 3 sampled records, got %d", schema.SampledRecords)
	}
	if schema.SuggestedTimestamp != "timestamp" {
		t.Fatalf("expected timestamp suggestion, got %q", schema.SuggestedTimestamp)
	}
	if schema.SuggestedValue != "power" {
		t.Fatalf("expected power suggestion, got %q", schema.SuggestedValue)
	}

	byPath := make(map[string]int)
	for i, f := range schema.Fields {
		byPath[f.Path] = i
	}
	power := schema.Fields[byPath["power"]]
	if power.NonNullCount != 2 || power.NullCount != 1 {
		t.Fatalf("unexpected power counts: %+v", power)
	}
	if len(power.Types) != 1 || power.Types[0] != "number" {
		t.Fatalf("unexpected power types: %v", power.Types)
	}

	// Identifier-named fields never become value candidates.
	device := schema.Fields[byPath["deviceId"]]
	if device.ValueCandidate {
		t.Fatal("deviceId must not be a value candidate")
	}
}

func TestInferFlattensNestedPaths(t *testing.T) {
	records := []any{
		map[string]any{"meta": map[string]any{"site": "a", "readings": map[string]any{"soc": 88.0}}},
	}

	schema := Infer(records, 0)
	paths := make(map[string]bool)
	for _, f := range schema.Fields {
		paths[f.Path] = true
	}
	if !paths["meta.site"] || !paths["meta.readings.soc"] {
		t.Fatalf("expected flattened nested paths, got %v", paths)
	}
	if paths["meta"] {
		t.Fatal("intermediate objects must not appear as fields")
	}
}

func TestInferSampleSizeCap(t *testing.T) {
	records := make([]any, 0, 20)
	for i := 0; i < 20; i++ {
		records = append(records, map[string]any{"power": float64(i)})
	}

	schema := Infer(records, 5)
	if schema.SampledRecords != 5 {
		t.Fatalf("expected 5 sampled records, got %d", schema.SampledRecords)
	}
}

func TestInferSkipsNonObjectRecords(t *testing.T) {
	records := []any{"bogus", map[string]any{"power": 1.0}}
	schema := Infer(records, 0)
	if schema.SampledRecords != 1 {
		t.Fatalf("expected 1 sampled record, got %d", schema.SampledRecords)
	}
}

func TestInferMixedTypesSorted(t *testing.T) {
	records := []any{
		map[string]any{"reading": 1.0},
		map[string]any{"reading": "offline"},
	}
	schema := Infer(records, 0)
	if len(schema.Fields) != 1 {
		t.Fatalf("expected one field, got %d", len(schema.Fields))
	}
	types := schema.Fields[0].Types
	if len(types) != 2 || types[0] != "number" || types[1] != "string" {
		t.Fatalf("unexpected types: %v", types)
	}
}

func TestInferNativeResolution(t *testing.T) {
	// 60s spacing with one irregular gap; the modal delta wins.
	records := []any{
		map[string]any{"timestamp": 1704067200.0, "power": 1.0},
		map[string]any{"timestamp": 1704067260.0, "power": 2.0},
		map[string]any{"timestamp": 1704067320.0, "power": 3.0},
		map[string]any{"timestamp": 1704067500.0, "power": 4.0},
		map[string]any{"timestamp": 1704067560.0, "power": 5.0},
	}
	schema := Infer(records, 0)
	if schema.ResolutionMillis != 60000 {
		t.Fatalf("expected 60000ms resolution, got %d", schema.ResolutionMillis)
	}
}

func TestInferNativeResolutionISOAndMillis(t *testing.T) {
	iso := []any{
		map[string]any{"time": "2024-01-01T00:00:00Z"},
		map[string]any{"time": "2024-01-01T00:15:00Z"},
		map[string]any{"time": "2024-01-01T00:30:00Z"},
	}
	if got := Infer(iso, 0).ResolutionMillis; got != 900000 {
		t.Fatalf("expected 900000ms from ISO timestamps, got %d", got)
	}

	ms := []any{
		map[string]any{"ts": 1704067200000.0},
		map[string]any{"ts": 1704067201000.0},
		map[string]any{"ts": 1704067202000.0},
	}
	if got := Infer(ms, 0).ResolutionMillis; got != 1000 {
		t.Fatalf("expected 1000ms from millisecond timestamps, got %d", got)
	}
}

func TestInferNativeResolutionUndeterminable(t *testing.T) {
	// No timestamp candidate at all.
	if got := Infer([]any{map[string]any{"power": 1.0}}, 0).ResolutionMillis; got != 0 {
		t.Fatalf("expected 0 without a timestamp path, got %d", got)
	}
	// A single record has no deltas.
	one := []any{map[string]any{"timestamp": 1704067200.0}}
	if got := Infer(one, 0).ResolutionMillis; got != 0 {
		t.Fatalf("expected 0 for a single timestamp, got %d", got)
	}
	// Unparseable timestamp values.
	junk := []any{
		map[string]any{"timestamp": "soon"},
		map[string]any{"timestamp": "later"},
	}
	if got := Infer(junk, 0).ResolutionMillis; got != 0 {
		t.Fatalf("expected 0 for unparseable timestamps, got %d", got)
	}
}

func TestInferSampleValueCap(t *testing.T) {
	records := make([]any, 0, 30)
	for i := 0; i < 30; i++ {
		records = append(records, map[string]any{"power": float64(i)})
	}
	schema := Infer(records, 0)
	if len(schema.Fields[0].Samples) != maxSamples {
		t.Fatalf("expected %d samples, got %d", maxSamples, len(schema.Fields[0].Samples))
	}
}
