package application

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	normalization "connector-hub/internal/normalization/domain"
	"connector-hub/internal/normalization/transform"
)

// The content hashes are computed over an explicit canonical encoding:
// map keys sorted, numbers rendered in shortest round-trip form, strings
// quoted. The hash is purely a function of content so identical inputs
// always produce identical hashes across runs and engine instances.

// hashRecords hashes a raw record batch.
func hashRecords(records []any) string {
	var sb strings.Builder
	encodeCanonical(&sb, records)
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// hashPoints hashes a sorted canonical point list.
func hashPoints(points []normalization.CanonicalPoint) string {
	encoded := make([]any, 0, len(points))
	for _, p := range points {
		encoded = append(encoded, pointMap(p))
	}
	var sb strings.Builder
	encodeCanonical(&sb, encoded)
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func pointMap(p normalization.CanonicalPoint) map[string]any {
	values := make(map[string]any, len(p.Values))
	for k, v := range p.Values {
		values[k] = v
	}
	tags := make(map[string]any, len(p.Tags))
	for k, v := range p.Tags {
		tags[k] = v
	}
	return map[string]any{
		"timestamp": p.Timestamp,
		"value":     p.Value,
		"values":    values,
		"tags":      tags,
		"meta": map[string]any{
			"connectorId": p.Meta.ConnectorID,
			"batchId":     p.Meta.BatchID,
			"ingestedAt":  p.Meta.IngestedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func encodeCanonical(sb *strings.Builder, value any) {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case string:
		sb.WriteString(strconv.Quote(v))
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case float32:
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case int:
		sb.WriteString(strconv.Itoa(v))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case []any:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			encodeCanonical(sb, item)
		}
		sb.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			encodeCanonical(sb, v[k])
		}
		sb.WriteByte('}')
	default:
		sb.WriteString(strconv.Quote(transform.Stringify(v)))
	}
}

// dedupeKey hashes the record's dedupe-key field values. Records with the
// same key after the first are skipped.
func dedupeKey(record map[string]any, keys []string) uint64 {
	var sb strings.Builder
	for i, key := range keys {
		if i > 0 {
			sb.WriteByte('|')
		}
		value, found := resolvePath(record, key)
		if !found {
			sb.WriteString("\x00")
			continue
		}
		encodeCanonical(&sb, value)
	}
	return xxh3.HashString(sb.String())
}
