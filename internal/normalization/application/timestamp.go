package application

import (
	"fmt"
	"time"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/transform"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// resolveTimestamp locates and decodes the record timestamp into a
// millisecond epoch. A missing or unparseable timestamp is always a hard
// per-record failure; no default exists for time.
func resolveTimestamp(record map[string]any, m normalization.TimestampMapping, field string) (int64, *normalization.FieldDiagnostic) {
	raw, found := resolvePath(record, m.SourcePath)
	if !found || raw == nil {
		d := normalization.NewDiagnostic(field, normalization.CodeTimestampParseFailed,
			fmt.Sprintf("timestamp field %q is missing", m.SourcePath)).
			WithExpected(string(m.Format)).
			WithRemediation("every record must carry a resolvable timestamp")
		return 0, &d
	}

	switch m.Format {
	case normalization.TimestampUnixSeconds:
		n, ok := transform.Numeric(raw)
		if !ok {
			return 0, timestampDiag(field, raw, "unix seconds")
		}
		return int64(n * 1000), nil
	case normalization.TimestampUnixMillis:
		n, ok := transform.Numeric(raw)
		if !ok {
			return 0, timestampDiag(field, raw, "unix milliseconds")
		}
		return int64(n), nil
	case normalization.TimestampISO8601:
		s, ok := raw.(string)
		if !ok {
			return 0, timestampDiag(field, raw, "ISO-8601 text")
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().UnixMilli(), nil
			}
		}
		return 0, timestampDiag(field, raw, "ISO-8601 text")
	}
	return 0, timestampDiag(field, raw, "a declared timestamp format")
}

func timestampDiag(field string, raw any, expected string) *normalization.FieldDiagnostic {
	d := normalization.NewDiagnostic(field, normalization.CodeTimestampParseFailed,
		fmt.Sprintf("cannot parse %q as %s", transform.Stringify(raw), expected)).
		WithRaw(raw).
		WithExpected(expected)
	return &d
}
