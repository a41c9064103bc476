package explain

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// AmountTolerance is the absolute rounding tolerance applied when checking
// whether invoice totals balance. It is a documented heuristic constant, not
// a general policy; override per explainer instance if a rule set demands a
// different tolerance.
const AmountTolerance = 0.01

const totalsFallback = "Invoice total calculation error. Please verify that the Tax Inclusive Amount (BT-112) " +
	"matches the sum of Tax Exclusive Amount (BT-109) and Tax Amount (BT-110)."

// TotalsExplainer covers BR-CO-15: the tax-inclusive amount must equal the
// tax-exclusive amount plus the tax amount. It distinguishes genuine
// arithmetic failures from currency-mismatch side effects where the math
// actually holds.
type TotalsExplainer struct {
	// Tolerance overrides AmountTolerance when positive.
	Tolerance float64
}

func (t *TotalsExplainer) tolerance() float64 {
	if t.Tolerance > 0 {
		return t.Tolerance
	}
	return AmountTolerance
}

// Explain extracts the three monetary amounts and classifies the failure.
func (t *TotalsExplainer) Explain(finding model.NormalizedFinding, ctx *Context) Outcome {
	if ctx.Doc == nil {
		return Outcome{Humanized: totalsFallback}
	}

	exclusive := t.extract(ctx, "tax_exclusive_amount")
	tax := t.extract(ctx, "tax_amount")
	payable := t.extract(ctx, "payable_amount")
	if payable == "" {
		// The inclusive amount is an acceptable stand-in for the payable
		// amount when the latter is absent.
		payable = t.extract(ctx, "tax_inclusive_amount")
	}

	if payable == "" {
		zap.L().Debug("totals extraction failed: no payable amount",
			zap.String("session", ctx.Session),
		)
		return Outcome{
			Humanized: "Invoice total calculation error. Could not extract monetary amounts from the " +
				"invoice. Please verify that the Tax Inclusive Amount (BT-112) equals the Tax Exclusive " +
				"Amount (BT-109) plus Tax Amount (BT-110) according to BR-CO-15.",
		}
	}

	holds, comparable := t.checkArithmetic(exclusive, tax, payable)
	evidence := &model.Evidence{Totals: &model.TotalsEvidence{
		TaxExclusive:    exclusive,
		TaxAmount:       tax,
		Payable:         payable,
		ArithmeticHolds: holds,
	}}

	parts := []string{"Invoice total calculation error."}
	switch {
	case holds:
		taxShown := tax
		if taxShown == "" {
			taxShown = "0"
		}
		parts = append(parts, fmt.Sprintf(
			"The calculation appears correct (%s + %s = %s), but the validator rejected it. "+
				"This is often caused by currency code mismatches between the Document Currency Code (BT-5) "+
				"and the currencyID attributes on amount fields. "+
				"Check for other currency-related findings (e.g. PEPPOL-EN16931-R051).",
			exclusive, taxShown, payable))
	case comparable:
		parts = append(parts,
			"The Tax Inclusive Amount (BT-112) does not match the sum of Tax Exclusive Amount (BT-109) plus Tax Amount (BT-110).")
		details := []string{fmt.Sprintf("Tax Exclusive Amount (BT-109): %s", exclusive)}
		if tax != "" {
			details = append(details, fmt.Sprintf("Tax Amount (BT-110): %s", tax))
		} else {
			details = append(details, "Tax Amount (BT-110): (not found or zero)")
		}
		details = append(details, fmt.Sprintf("Tax Inclusive Amount (BT-112): %s", payable))
		parts = append(parts, fmt.Sprintf("Found: %s.", strings.Join(details, ", ")))
		parts = append(parts, "Please verify the arithmetic calculation of the invoice totals.")
	default:
		parts = append(parts,
			"Could not extract all required amounts for detailed analysis. "+
				"Please verify that Tax Inclusive Amount (BT-112) = Tax Exclusive Amount (BT-109) + Tax Amount (BT-110).")
	}

	return Outcome{Humanized: strings.Join(parts, " "), Evidence: evidence}
}

func (t *TotalsExplainer) extract(ctx *Context, field string) string {
	mapping, ok := Field(field)
	if !ok {
		return ""
	}
	value, strategy, found := ctx.Doc.FirstText(mapping.Strategies)
	if !found {
		return ""
	}
	zap.L().Debug("extracted field",
		zap.String("field", field),
		zap.String("value", value),
		zap.String("strategy", strategy.String()),
	)
	return value
}

// checkArithmetic reports whether exclusive + tax equals payable within the
// tolerance, and whether the inputs were numeric enough to compare at all.
func (t *TotalsExplainer) checkArithmetic(exclusive, tax, payable string) (holds, comparable bool) {
	if exclusive == "" || payable == "" {
		return false, false
	}
	exc, err := strconv.ParseFloat(exclusive, 64)
	if err != nil {
		return false, false
	}
	pay, err := strconv.ParseFloat(payable, 64)
	if err != nil {
		return false, false
	}
	var tx float64
	if tax != "" {
		tx, err = strconv.ParseFloat(tax, 64)
		if err != nil {
			return false, false
		}
	}

	diff := exc + tx - pay
	if diff < 0 {
		diff = -diff
	}
	return diff <= t.tolerance(), true
}
