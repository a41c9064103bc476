package model

// Severity classifies a validation finding.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityFatal, SeverityError, SeverityWarning:
		return true
	}
	return false
}

// RawFinding is a single untyped finding as produced by the external rule
// engine. Field types are not trusted until normalization.
type RawFinding map[string]any

// NewRawFinding builds a well-formed raw finding. Report parsers use this;
// normalization still runs the full whitelist over the result.
func NewRawFinding(id, message, location string, severity Severity) RawFinding {
	f := RawFinding{
		"id":      id,
		"message": message,
	}
	if location != "" {
		f["location"] = location
	}
	if severity != "" {
		f["severity"] = string(severity)
	}
	return f
}

// NormalizedFinding is the strict internal contract for a finding. Every
// field is always present; instances are freshly allocated per raw finding
// and never alias the raw input.
type NormalizedFinding struct {
	ID         string   `json:"id"`
	Message    string   `json:"message"`
	Location   string   `json:"location,omitempty"`
	Severity   Severity `json:"severity"`
	Suppressed bool     `json:"suppressed"`
	Humanized  string   `json:"humanized_message,omitempty"`
}
