package explain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/invoiceguard/invoiceguard/internal/docquery"
	"github.com/invoiceguard/invoiceguard/internal/model"
)

const lineVATFallback = "VAT calculation error. The declared total VAT amount does not match the sum of " +
	"VAT amounts from invoice lines. Please check your VAT calculations."

// LineVATExplainer covers BR-CO-16: the VAT category tax amount must equal
// the sum of invoice line VAT amounts.
type LineVATExplainer struct{}

// Explain extracts the declared total VAT and per-line VAT amounts. Lines
// without an explicit tax total fall back to line amount times the
// classified tax rate.
func (l *LineVATExplainer) Explain(finding model.NormalizedFinding, ctx *Context) Outcome {
	if ctx.Doc == nil {
		return Outcome{Humanized: lineVATFallback}
	}

	totalVAT := ""
	if mapping, ok := Field("tax_amount"); ok {
		totalVAT, _, _ = ctx.Doc.FirstText(mapping.Strategies)
	}

	lines := ctx.Doc.FindAll(localName("InvoiceLine"))
	lineAmounts := make([]string, 0, len(lines))
	for _, line := range lines {
		lineAmounts = append(lineAmounts, lineVATAmount(line))
	}

	if totalVAT == "" && len(lines) == 0 {
		return Outcome{
			Humanized: "VAT calculation error. Unable to extract tax amounts from the invoice. " +
				"Please verify that all VAT amounts are correctly calculated and declared.",
		}
	}

	evidence := &model.Evidence{LineVAT: &model.LineVATEvidence{
		TotalVAT:    totalVAT,
		LineCount:   len(lines),
		LineAmounts: lineAmounts,
	}}

	shownTotal := totalVAT
	if shownTotal == "" {
		shownTotal = "N/A"
	}
	parts := []string{
		"VAT calculation mismatch detected.",
		fmt.Sprintf("Total VAT amount declared: %s.", shownTotal),
		fmt.Sprintf("Number of invoice lines: %d.", len(lines)),
	}
	if len(lineAmounts) > 0 {
		var sum float64
		for _, a := range lineAmounts {
			if v, err := strconv.ParseFloat(a, 64); err == nil {
				sum += v
			}
		}
		parts = append(parts, fmt.Sprintf("Sum of line VAT amounts: %.2f.", sum))
		parts = append(parts, fmt.Sprintf("Line VAT details: %s.", strings.Join(lineAmounts, ", ")))
	}
	parts = append(parts, "Please verify that the total VAT amount equals the sum of all line-level VAT calculations.")

	return Outcome{Humanized: strings.Join(parts, " "), Evidence: evidence}
}

func localName(names ...string) docquery.Strategy {
	steps := make([]docquery.Step, len(names))
	for i, n := range names {
		steps[i] = docquery.Step{Name: n}
	}
	return docquery.Strategy{Kind: docquery.KindLocalName, Path: steps}
}

// lineVATAmount pulls the VAT amount for one invoice line: the explicit
// TaxTotal/TaxAmount child when present, otherwise LineExtensionAmount times
// the classified tax rate.
func lineVATAmount(line *etree.Element) string {
	for _, taxTotal := range docquery.ChildrenByLocal(line, "TaxTotal") {
		for _, taxAmount := range docquery.ChildrenByLocal(taxTotal, "TaxAmount") {
			if v := strings.TrimSpace(taxAmount.Text()); v != "" {
				return v
			}
		}
	}

	amount := docquery.FirstDescendantText(line, "LineExtensionAmount")
	percent := docquery.FirstDescendantText(line, "Percent")
	if amount != "" && percent != "" {
		a, errA := strconv.ParseFloat(amount, 64)
		p, errP := strconv.ParseFloat(percent, 64)
		if errA == nil && errP == nil {
			return fmt.Sprintf("%.2f", a*p/100)
		}
	}
	return "0.00"
}
