// Package infer proposes a first-draft schema from a sample of raw records.
// Inference is best-effort and statistics-driven; its output bootstraps a
// mapping rule for human review and is never promoted automatically.
package infer

import (
	"sort"
	"strings"
	"time"

	normalization "connector-hub/internal/normalization/domain"
)

// DefaultSampleSize bounds the scan when the caller does not.
const DefaultSampleSize = 100

const maxSamples = 10

var timestampHints = []string{"timestamp", "time", "date", "ts"}
var identifierHints = []string{"id", "uuid", "key"}

type fieldStats struct {
	types        map[string]struct{}
	nullCount    int
	nonNullCount int
	samples      []any
}

// Infer scans up to sampleSize records (default 100) and aggregates
// per-field observations. Empty input yields an empty schema, never an
// error.
func Infer(records []any, sampleSize int) normalization.InferredSchema {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if len(records) < sampleSize {
		sampleSize = len(records)
	}

	stats := make(map[string]*fieldStats)
	scanned := 0
	for _, raw := range records[:sampleSize] {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		scanned++
		flatten("", record, stats)
	}

	schema := normalization.InferredSchema{SampledRecords: scanned}
	paths := make([]string, 0, len(stats))
	for path := range stats {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	bestTimestamp, bestTimestampCount := "", 0
	bestValue, bestValueCount := "", 0
	for _, path := range paths {
		s := stats[path]
		obs := normalization.FieldObservation{
			Path:               path,
			Types:              sortedTypes(s.types),
			NullCount:          s.nullCount,
			NonNullCount:       s.nonNullCount,
			Samples:            s.samples,
			TimestampCandidate: isTimestampCandidate(path),
			ValueCandidate:     isValueCandidate(path, s.types),
		}
		schema.Fields = append(schema.Fields, obs)

		if obs.TimestampCandidate && s.nonNullCount > bestTimestampCount {
			bestTimestamp, bestTimestampCount = path, s.nonNullCount
		}
		if obs.ValueCandidate && s.nonNullCount > bestValueCount {
			bestValue, bestValueCount = path, s.nonNullCount
		}
	}
	schema.SuggestedTimestamp = bestTimestamp
	schema.SuggestedValue = bestValue
	schema.ResolutionMillis = nativeResolution(records[:sampleSize], bestTimestamp)
	return schema
}

// nativeResolution estimates the source's sampling interval: the modal
// spacing in milliseconds between consecutive timestamps observed at the
// suggested path. Zero when fewer than two timestamps decode.
func nativeResolution(records []any, timestampPath string) int64 {
	if timestampPath == "" {
		return 0
	}
	var millis []int64
	for _, raw := range records {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		value, found := lookupPath(record, timestampPath)
		if !found {
			continue
		}
		if ms, ok := decodeMillis(value); ok {
			millis = append(millis, ms)
		}
	}
	if len(millis) < 2 {
		return 0
	}
	sort.Slice(millis, func(a, b int) bool { return millis[a] < millis[b] })

	deltas := make(map[int64]int)
	for i := 1; i < len(millis); i++ {
		if d := millis[i] - millis[i-1]; d > 0 {
			deltas[d]++
		}
	}
	var mode int64
	best := 0
	for d, count := range deltas {
		if count > best || (count == best && (mode == 0 || d < mode)) {
			mode, best = d, count
		}
	}
	return mode
}

func lookupPath(record map[string]any, path string) (any, bool) {
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

// decodeMillis decodes a sampled timestamp value without a declared format:
// numbers at or above 1e12 read as milliseconds, smaller numbers as seconds,
// strings as ISO-8601.
func decodeMillis(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		if v >= 1e12 {
			return int64(v), true
		}
		return int64(v * 1000), true
	case int64:
		return decodeMillis(float64(v))
	case int:
		return decodeMillis(float64(v))
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC().UnixMilli(), true
			}
		}
	}
	return 0, false
}

func flatten(prefix string, record map[string]any, stats map[string]*fieldStats) {
	for key, value := range record {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flatten(path, nested, stats)
			continue
		}
		s := stats[path]
		if s == nil {
			s = &fieldStats{types: make(map[string]struct{})}
			stats[path] = s
		}
		if value == nil {
			s.nullCount++
			continue
		}
		s.nonNullCount++
		s.types[typeName(value)] = struct{}{}
		if len(s.samples) < maxSamples {
			s.samples = append(s.samples, value)
		}
	}
}

func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, uint, uint64:
		return "number"
	case []any:
		return "array"
	default:
		return "unknown"
	}
}

func sortedTypes(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func isTimestampCandidate(path string) bool {
	name := strings.ToLower(path)
	for _, hint := range timestampHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func isValueCandidate(path string, types map[string]struct{}) bool {
	if _, numeric := types["number"]; !numeric {
		return false
	}
	if isTimestampCandidate(path) {
		return false
	}
	name := strings.ToLower(path)
	for _, hint := range identifierHints {
		if strings.Contains(name, hint) {
			return false
		}
	}
	return true
}
