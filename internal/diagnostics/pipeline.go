package diagnostics

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/docquery"
	"github.com/invoiceguard/invoiceguard/internal/explain"
	"github.com/invoiceguard/invoiceguard/internal/model"
	"github.com/invoiceguard/invoiceguard/internal/suppression"
)

// fatalParseID identifies the synthetic finding emitted when the source
// document cannot be parsed.
const fatalParseID = "SYS-XML-001"

const defaultFix = "Please review and correct this finding according to the Peppol BIS 3.0 specification."

// fixMessages holds curated remediation text for known rule families.
var fixMessages = map[string]string{
	"PEPPOL-EN16931-R051": "Make BT-5 (DocumentCurrencyCode) and all currencyID attributes consistent. " +
		"Either change BT-5 to match the amounts, or convert amounts and update currencyID to match BT-5.",
	"BR-CO-15": "Verify that Tax Inclusive Amount (BT-112) = Tax Exclusive Amount (BT-109) + Tax Amount (BT-110).",
	"BR-CO-16": "Verify that tax amounts sum correctly across all invoice lines.",
	"PEPPOL-EN16931-R001": "Add a ProfileID element according to Peppol BIS 3.0.",
	"UBL-CR-001":          "Add a CustomizationID element identifying the document specification.",
}

// Pipeline runs the full enrichment sequence for one batch of findings.
// A Pipeline is safe for concurrent use; per-request state stays on the
// stack of Run.
type Pipeline struct {
	filter   *suppression.Filter
	registry explain.Registry
	cascade  []CascadeRule
}

// New creates a pipeline with the default explainer registry and cascade
// table.
func New(filter *suppression.Filter) *Pipeline {
	return &Pipeline{
		filter:   filter,
		registry: explain.NewRegistry(),
		cascade:  DefaultCascadeRules,
	}
}

// WithCascadeRules replaces the built-in cascade table.
func (p *Pipeline) WithCascadeRules(rules []CascadeRule) *Pipeline {
	p.cascade = rules
	return p
}

// Result is the pipeline output. Fatal is set only when the document could
// not be parsed; otherwise Errors holds the enriched per-instance listing
// and Grouped the deduplicated view for aggregating presentation tiers.
type Result struct {
	Fatal   *model.DiagnosticError
	Errors  []model.DiagnosticError
	Grouped []model.DiagnosticError
}

// Status derives the envelope status for this result.
func (r Result) Status() model.Status {
	switch {
	case r.Fatal != nil:
		return model.StatusError
	case len(r.Errors) > 0:
		return model.StatusRejected
	default:
		return model.StatusPassed
	}
}

// Run processes one batch: normalize, parse the document, apply dependency
// suppression, explain, tier, group, and apply cascade suppression. Nothing
// below the presentation boundary aborts the batch; a parse failure
// short-circuits with a single fatal finding because no enrichment is
// possible without a document.
func (p *Pipeline) Run(ctx context.Context, session string, raw []model.RawFinding, docBytes []byte) Result {
	log := zap.L().With(zap.String("session", session))

	normalized := Normalize(raw)
	log.Debug("normalized findings",
		zap.Int("raw", len(raw)),
		zap.Int("kept", len(normalized)),
	)

	doc, err := docquery.Parse(docBytes)
	if err != nil {
		var parseErr *docquery.ParseError
		reason := "document could not be parsed"
		if errors.As(err, &parseErr) {
			reason = parseErr.Error()
		}
		log.Warn("document parse failed", zap.Error(err))
		fatal := toTiered(model.NormalizedFinding{
			ID:        fatalParseID,
			Message:   reason,
			Severity:  model.SeverityFatal,
			Humanized: "System error: the submitted document is not well-formed XML and could not be analyzed.",
		}, nil)
		return Result{Fatal: &fatal}
	}

	p.filter.Apply(ctx, normalized)

	ec := &explain.Context{
		Doc:        doc,
		Namespaces: doc.Namespaces(),
		Source:     docBytes,
		Session:    session,
	}

	evidence := make([]*model.Evidence, len(normalized))
	for i := range normalized {
		if normalized[i].Suppressed {
			continue
		}
		out, ok := p.registry.Explain(normalized[i], ec)
		if !ok {
			continue
		}
		if out.Humanized == "" {
			// Explainer failed internally; leave the finding unexplained
			// rather than carrying a partial result.
			log.Warn("explainer produced no explanation", zap.String("rule", normalized[i].ID))
			continue
		}
		normalized[i].Humanized = out.Humanized
		evidence[i] = out.Evidence
	}

	tiered := make([]model.DiagnosticError, len(normalized))
	for i := range normalized {
		tiered[i] = toTiered(normalized[i], evidence[i])
	}

	grouped := Group(tiered)
	ApplyCascade(grouped, p.cascade)
	ApplyCascade(tiered, p.cascade)

	return Result{Errors: tiered, Grouped: grouped}
}

// toTiered projects a normalized finding into the tiered diagnostic shape,
// cleaning the location for display while preserving the verbatim original
// in the technical details.
func toTiered(f model.NormalizedFinding, ev *model.Evidence) model.DiagnosticError {
	summary := f.Humanized
	if summary == "" {
		summary = f.Message
	}

	fix, ok := fixMessages[f.ID]
	if !ok {
		fix = defaultFix
	}

	var locations, rawLocations []string
	if f.Location != "" {
		locations = []string{docquery.CleanLocation(f.Location)}
		rawLocations = []string{f.Location}
	}

	return model.DiagnosticError{
		ID:       f.ID,
		Severity: f.Severity,
		Action: model.Action{
			Summary:   summary,
			Fix:       fix,
			Locations: locations,
		},
		Evidence: ev,
		TechnicalDetails: model.TechnicalDetails{
			RawMessage:   f.Message,
			RawLocations: rawLocations,
		},
		Suppressed: f.Suppressed,
	}
}
