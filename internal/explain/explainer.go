// Package explain turns validator findings into human-readable explanations
// backed by evidence extracted deterministically from the source document.
// One explainer exists per rule family; each degrades gracefully through
// partial-evidence and no-evidence branches and never produces an empty
// explanation.
package explain

import (
	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/docquery"
	"github.com/invoiceguard/invoiceguard/internal/model"
)

// Context carries everything an explainer may inspect: the parsed document
// and its namespace map, plus the raw bytes for size heuristics.
type Context struct {
	Doc        *docquery.Document
	Namespaces map[string]string
	Source     []byte
	Session    string
}

// Outcome is the result of one explanation attempt. A zero Outcome means the
// explainer failed entirely; the pipeline then leaves the finding
// unexplained.
type Outcome struct {
	Humanized string
	Evidence  *model.Evidence
}

// Explainer produces an explanation for one rule family. Implementations
// must return a non-empty Humanized message on every non-panicking path.
type Explainer interface {
	Explain(finding model.NormalizedFinding, ctx *Context) Outcome
}

// Registry is the fixed rule-id-to-explainer mapping, resolved once at
// startup and static for the process lifetime.
type Registry map[string]Explainer

// NewRegistry builds the registry over the closed set of rule families.
func NewRegistry() Registry {
	return Registry{
		"BR-CO-15":            &TotalsExplainer{},
		"BR-CO-16":            &LineVATExplainer{},
		"PEPPOL-EN16931-R051": &CurrencyExplainer{},
		"PEPPOL-EN16931-R001": &ProfileExplainer{},
		"UBL-CR-001":          &CustomizationExplainer{},
	}
}

// Explain dispatches to the explainer registered for the finding's rule id.
// The second return is false when no explainer covers the rule. A panicking
// explainer is recovered and treated as a failed attempt (zero Outcome).
func (r Registry) Explain(finding model.NormalizedFinding, ctx *Context) (out Outcome, ok bool) {
	exp, ok := r[finding.ID]
	if !ok {
		return Outcome{}, false
	}

	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Warn("explainer panicked",
				zap.String("rule", finding.ID),
				zap.String("session", ctx.Session),
				zap.Any("panic", rec),
			)
			out = Outcome{}
		}
	}()

	return exp.Explain(finding, ctx), true
}
