package normalization

// ErrorCode identifies one entry of the fixed diagnostic taxonomy.
type ErrorCode string

// Field data codes (1xxx).
const (
	CodeMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"
	CodeTypeCoercionFailed   ErrorCode = "TYPE_COERCION_FAILED"
	CodeValueOutOfRange      ErrorCode = "VALUE_OUT_OF_RANGE"
	CodeSchemaMismatch       ErrorCode = "SCHEMA_MISMATCH"
)

// Normalization codes (2xxx).
const (
	CodeNormalizationFailed  ErrorCode = "NORMALIZATION_FAILED"
	CodeMappingNotFound      ErrorCode = "MAPPING_NOT_FOUND"
	CodeTimestampParseFailed ErrorCode = "TIMESTAMP_PARSE_FAILED"
	CodeValueParseFailed     ErrorCode = "VALUE_PARSE_FAILED"
	CodeInvalidMappingRule   ErrorCode = "INVALID_MAPPING_RULE"
)

// Fetch layer codes (3xxx). Declared for the connector layer's use;
// the engine never raises them.
const (
	CodeAuthFailed       ErrorCode = "AUTH_FAILED"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodePaginationFailed ErrorCode = "PAGINATION_FAILED"
)

var codeNumbers = map[ErrorCode]int{
	CodeMissingRequiredField: 1001,
	CodeTypeCoercionFailed:   1002,
	CodeValueOutOfRange:      1003,
	CodeSchemaMismatch:       1004,

	CodeNormalizationFailed:  2001,
	CodeMappingNotFound:      2002,
	CodeTimestampParseFailed: 2003,
	CodeValueParseFailed:     2004,
	CodeInvalidMappingRule:   2005,

	CodeAuthFailed:       3001,
	CodeConnectionFailed: 3002,
	CodeRateLimited:      3003,
	CodePaginationFailed: 3004,
}

// Number returns the stable numeric code, or 0 for an unknown code.
func (c ErrorCode) Number() int {
	return codeNumbers[c]
}

// Severity grades a diagnostic. Only error severity gates result success.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// FieldDiagnostic reports a single field-level failure during normalization.
// Diagnostics never aggregate across records.
type FieldDiagnostic struct {
	Field       string    `json:"field"`
	Code        ErrorCode `json:"code"`
	CodeNumber  int       `json:"codeNumber"`
	Message     string    `json:"message"`
	RawValue    any       `json:"rawValue,omitempty"`
	Expected    string    `json:"expected,omitempty"`
	Remediation string    `json:"remediation,omitempty"`
	Severity    Severity  `json:"severity"`
}

// NewDiagnostic builds an error-severity diagnostic for a field.
func NewDiagnostic(field string, code ErrorCode, message string) FieldDiagnostic {
	return FieldDiagnostic{
		Field:      field,
		Code:       code,
		CodeNumber: code.Number(),
		Message:    message,
		Severity:   SeverityError,
	}
}

// WithRaw attaches the offending raw value.
func (d FieldDiagnostic) WithRaw(raw any) FieldDiagnostic {
	d.RawValue = raw
	return d
}

// WithExpected attaches the expected type or format description.
func (d FieldDiagnostic) WithExpected(expected string) FieldDiagnostic {
	d.Expected = expected
	return d
}

// WithRemediation attaches a remediation hint.
func (d FieldDiagnostic) WithRemediation(hint string) FieldDiagnostic {
	d.Remediation = hint
	return d
}

// WithSeverity overrides the default error severity.
func (d FieldDiagnostic) WithSeverity(severity Severity) FieldDiagnostic {
	d.Severity = severity
	return d
}
