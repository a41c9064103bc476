package diagnostics

import (
	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// CascadeRule states that when the Root finding is present anywhere in a
// batch, the Derivative finding is almost certainly its side effect and
// should be suppressed with a summary naming the suspected root cause.
//
// This table is a built-in heuristic, deliberately separate from the
// externally configured dependency map, and is not hot-reloadable. Pipeline
// consumers may replace it wholesale.
type CascadeRule struct {
	Root       string
	Derivative string
	Summary    string
}

// DefaultCascadeRules is the built-in cascade table: a document-level
// currency mismatch makes a totals-arithmetic mismatch a near-certain side
// effect.
var DefaultCascadeRules = []CascadeRule{
	{
		Root:       "PEPPOL-EN16931-R051",
		Derivative: "BR-CO-15",
		Summary:    "Math error (suppressed: likely caused by currency mismatch PEPPOL-EN16931-R051)",
	},
}

// ApplyCascade suppresses derivative findings whose root cause is present in
// the batch, rewriting their summaries to state the suspected cause. Runs
// after grouping so any suppression reflects final occurrence counts.
// Returns the number of findings newly suppressed.
func ApplyCascade(errors []model.DiagnosticError, rules []CascadeRule) int {
	if len(errors) == 0 || len(rules) == 0 {
		return 0
	}

	present := make(map[string]struct{}, len(errors))
	for i := range errors {
		present[errors[i].ID] = struct{}{}
	}

	suppressed := 0
	for _, rule := range rules {
		if _, ok := present[rule.Root]; !ok {
			continue
		}
		for i := range errors {
			if errors[i].ID != rule.Derivative || errors[i].Suppressed {
				continue
			}
			errors[i].Suppressed = true
			errors[i].Action.Summary = rule.Summary
			suppressed++
		}
	}

	if suppressed > 0 {
		zap.L().Info("cross-finding suppression applied",
			zap.Int("suppressed", suppressed),
		)
	}
	return suppressed
}
