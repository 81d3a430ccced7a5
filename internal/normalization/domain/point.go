package normalization

import "time"

// ProcessingMeta records where and when a point entered the pipeline.
type ProcessingMeta struct {
	ConnectorID string    `json:"connectorId"`
	BatchID     string    `json:"batchId"`
	IngestedAt  time.Time `json:"ingestedAt"`
}

// CanonicalPoint is the normalized, timestamped representation of one
// source record. Timestamp is always a valid millisecond epoch; a record
// whose timestamp cannot be resolved never becomes a point.
type CanonicalPoint struct {
	Timestamp int64              `json:"timestamp"`
	Value     any                `json:"value"`
	Values    map[string]float64 `json:"values,omitempty"`
	Tags      map[string]string  `json:"tags,omitempty"`
	Meta      ProcessingMeta     `json:"meta"`
}

// NormalizationContext carries per-invocation identifiers. It holds no
// engine state and has no identity beyond the call.
type NormalizationContext struct {
	ConnectorID   string    `json:"connectorId"`
	TenantID      string    `json:"tenantId"`
	WorkspaceID   string    `json:"workspaceId,omitempty"`
	BatchID       string    `json:"batchId"`
	CorrelationID string    `json:"correlationId"`
	IngestedAt    time.Time `json:"ingestedAt"`
}

// RunStats summarizes one normalization run.
type RunStats struct {
	InputRecords   int           `json:"inputRecords"`
	OutputPoints   int           `json:"outputPoints"`
	SkippedRecords int           `json:"skippedRecords"`
	ErrorCount     int           `json:"errorCount"`
	WarningCount   int           `json:"warningCount"`
	Duration       time.Duration `json:"duration"`
}

// NormalizationResult is everything one engine call produces. Points are
// sorted ascending by timestamp; the hashes cover the raw input batch and
// the sorted point list under the canonical encoding.
type NormalizationResult struct {
	Success     bool              `json:"success"`
	Points      []CanonicalPoint  `json:"points"`
	Diagnostics []FieldDiagnostic `json:"diagnostics"`
	Stats       RunStats          `json:"stats"`
	InputHash   string            `json:"inputHash"`
	OutputHash  string            `json:"outputHash"`
}
