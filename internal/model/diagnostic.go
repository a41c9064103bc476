package model

// Action carries the user-facing description and remediation for a finding.
type Action struct {
	Summary   string   `json:"summary"`
	Fix       string   `json:"fix"`
	Locations []string `json:"locations"`
}

// TechnicalDetails preserves verbatim engine output for audit tiers.
type TechnicalDetails struct {
	RawMessage   string   `json:"raw_message"`
	RawLocations []string `json:"raw_locations"`
}

// TotalsEvidence holds amounts extracted for a totals-consistency finding.
// Values are kept as the verbatim document text; numeric interpretation
// happens in the explainer.
type TotalsEvidence struct {
	TaxExclusive    string `json:"tax_exclusive_amount,omitempty"`
	TaxAmount       string `json:"tax_amount,omitempty"`
	Payable         string `json:"payable_amount,omitempty"`
	ArithmeticHolds bool   `json:"arithmetic_holds"`
}

// CurrencyEvidence holds currency-consistency facts.
type CurrencyEvidence struct {
	DocumentCurrency string         `json:"document_currency,omitempty"`
	Counts           map[string]int `json:"currency_ids_found,omitempty"`
	InvalidCodes     []string       `json:"invalid_codes,omitempty"`
}

// LineVATEvidence holds line-level tax facts for a VAT-sum finding.
type LineVATEvidence struct {
	TotalVAT    string   `json:"total_vat_amount,omitempty"`
	LineCount   int      `json:"line_count"`
	LineAmounts []string `json:"line_vat_amounts,omitempty"`
}

// IdentifierEvidence holds presence facts for an identifier element such as
// ProfileID or CustomizationID.
type IdentifierEvidence struct {
	Element      string `json:"element"`
	Present      bool   `json:"present"`
	Value        string `json:"value,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
}

// Evidence is the discriminated evidence record attached to a diagnostic.
// Exactly one family field is set by an explainer; Extra holds rule-agnostic
// facts that fit no family shape.
type Evidence struct {
	Totals          *TotalsEvidence     `json:"totals,omitempty"`
	Currency        *CurrencyEvidence   `json:"currency,omitempty"`
	LineVAT         *LineVATEvidence    `json:"line_vat,omitempty"`
	Identifier      *IdentifierEvidence `json:"identifier,omitempty"`
	OccurrenceCount int                 `json:"occurrence_count,omitempty"`
	Extra           map[string]any      `json:"extra,omitempty"`
}

// Occurrence records one member of a merged diagnostic group.
type Occurrence struct {
	Location    string `json:"location,omitempty"`
	RawLocation string `json:"raw_location,omitempty"`
}

// DiagnosticError is the fully enriched, tiered form of a finding. It is
// created once per normalized finding, marked by the suppression passes, and
// replaced (not mutated) when grouping merges instances.
type DiagnosticError struct {
	ID               string           `json:"id"`
	Severity         Severity         `json:"severity"`
	Action           Action           `json:"action"`
	Evidence         *Evidence        `json:"evidence,omitempty"`
	TechnicalDetails TechnicalDetails `json:"technical_details"`
	Suppressed       bool             `json:"suppressed"`
	OccurrenceCount  int              `json:"occurrence_count,omitempty"`
	Occurrences      []Occurrence     `json:"occurrences,omitempty"`
}
