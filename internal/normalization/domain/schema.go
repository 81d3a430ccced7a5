package normalization

// FieldObservation aggregates what inference saw at one dotted field path.
type FieldObservation struct {
	Path               string   `json:"path"`
	Types              []string `json:"types"`
	NullCount          int      `json:"nullCount"`
	NonNullCount       int      `json:"nonNullCount"`
	Samples            []any    `json:"samples,omitempty"`
	TimestampCandidate bool     `json:"timestampCandidate"`
	ValueCandidate     bool     `json:"valueCandidate"`
}

// InferredSchema is a best-effort proposal for bootstrapping a mapping rule.
// It is never auto-promoted into an active rule.
type InferredSchema struct {
	Fields             []FieldObservation `json:"fields"`
	SuggestedTimestamp string             `json:"suggestedTimestamp,omitempty"`
	SuggestedValue     string             `json:"suggestedValue,omitempty"`
	// ResolutionMillis is the modal spacing between consecutive timestamps
	// observed at the suggested timestamp path, zero when undeterminable.
	ResolutionMillis int64 `json:"resolutionMillis,omitempty"`
	SampledRecords   int   `json:"sampledRecords"`
}
