package model

// Status summarizes a validation run.
type Status string

const (
	StatusPassed   Status = "PASSED"
	StatusRejected Status = "REJECTED"
	StatusError    Status = "ERROR"
)

// Meta identifies the engine and rule set that produced a response.
type Meta struct {
	Engine   string `json:"engine"`
	RulesTag string `json:"rules_tag"`
	Commit   string `json:"commit,omitempty"`
	Session  string `json:"session,omitempty"`
}

// Response is the full, data-rich pipeline output before any presentation
// projection. Errors is the ungrouped per-instance listing; Grouped is the
// deduplicated view used by the aggregating tiers.
type Response struct {
	Status   Status            `json:"status"`
	Meta     Meta              `json:"meta"`
	Errors   []DiagnosticError `json:"errors"`
	Grouped  []DiagnosticError `json:"grouped,omitempty"`
	DebugLog string            `json:"debug_log,omitempty"`
}

// Envelope is the externally visible response shape. Diagnosis holds the
// tier-specific projection: []ShortItem, []BalancedItem, or
// []DiagnosticError.
type Envelope struct {
	Status   Status `json:"status"`
	Meta     Meta   `json:"meta"`
	Diagnosis any   `json:"diagnosis"`
	DebugLog string `json:"debug_log,omitempty"`
}

// ShortItem is one SHORT-tier diagnosis entry.
type ShortItem struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Fix             string   `json:"fix"`
	Count           int      `json:"count"`
	LocationsSample []string `json:"locations_sample,omitempty"`
}

// BalancedItem is one BALANCED-tier diagnosis entry.
type BalancedItem struct {
	ID              string         `json:"id"`
	Summary         string         `json:"summary"`
	Fix             string         `json:"fix"`
	Count           int            `json:"count"`
	LocationsSample []string       `json:"locations_sample,omitempty"`
	Evidence        map[string]any `json:"evidence,omitempty"`
}
