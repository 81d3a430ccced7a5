package application

import (
	"testing"

	normalization "connector-hub/internal/normalization/domain"
)

func TestResolveTimestamp(t *testing.T) {
	cases := []struct {
		name   string
		format normalization.TimestampFormat
		record map[string]any
		want   int64
	}{
		{"unix seconds", normalization.TimestampUnixSeconds, map[string]any{"ts": 1704067200.0}, 1704067200000},
		{"unix seconds string", normalization.TimestampUnixSeconds, map[string]any{"ts": "1704067200"}, 1704067200000},
		{"unix millis", normalization.TimestampUnixMillis, map[string]any{"ts": 1704067200500.0}, 1704067200500},
		{"iso8601 utc", normalization.TimestampISO8601, map[string]any{"ts": "2024-01-01T00:00:00Z"}, 1704067200000},
		{"iso8601 offset", normalization.TimestampISO8601, map[string]any{"ts": "2024-01-01T01:00:00+01:00"}, 1704067200000},
		{"iso8601 date only", normalization.TimestampISO8601, map[string]any{"ts": "2024-01-01"}, 1704067200000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, diag := resolveTimestamp(tc.record, normalization.TimestampMapping{SourcePath: "ts", Format: tc.format}, "ts")
			if diag != nil {
				t.Fatalf("unexpected diagnostic: %+v", diag)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestResolveTimestampFailures(t *testing.T) {
	cases := []struct {
		name   string
		format normalization.TimestampFormat
		record map[string]any
	}{
		{"missing field", normalization.TimestampISO8601, map[string]any{}},
		{"null value", normalization.TimestampISO8601, map[string]any{"ts": nil}},
		{"garbage text", normalization.TimestampISO8601, map[string]any{"ts": "tomorrow"}},
		{"non-numeric seconds", normalization.TimestampUnixSeconds, map[string]any{"ts": "soon"}},
		{"non-string iso", normalization.TimestampISO8601, map[string]any{"ts": 42.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, diag := resolveTimestamp(tc.record, normalization.TimestampMapping{SourcePath: "ts", Format: tc.format}, "ts")
			if diag == nil {
				t.Fatal("expected a diagnostic")
			}
			if diag.Code != normalization.CodeTimestampParseFailed {
				t.Fatalf("expected TIMESTAMP_PARSE_FAILED, got %s", diag.Code)
			}
		})
	}
}

func TestResolveTimestampNestedPath(t *testing.T) {
	record := map[string]any{"meta": map[string]any{"observedAt": "2024-01-01T00:00:00Z"}}
	got, diag := resolveTimestamp(record, normalization.TimestampMapping{SourcePath: "meta.observedAt", Format: normalization.TimestampISO8601}, "meta.observedAt")
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %+v", diag)
	}
	if got != 1704067200000 {
		t.Fatalf("got %d", got)
	}
}
