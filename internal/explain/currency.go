package explain

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/currency"

	"github.com/invoiceguard/invoiceguard/internal/docquery"
	"github.com/invoiceguard/invoiceguard/internal/model"
)

const currencyFallback = "Currency code mismatch. The Document Currency Code (BT-5) must match " +
	"the currencyID attribute on all monetary amounts in the invoice."

// CurrencyExplainer covers PEPPOL-EN16931-R051: every currencyID attribute
// must match the document currency code. It tallies the currency codes found
// on monetary elements and flags codes that are not valid ISO 4217.
type CurrencyExplainer struct{}

// Explain extracts the document currency and the per-code occurrence tally.
func (c *CurrencyExplainer) Explain(finding model.NormalizedFinding, ctx *Context) Outcome {
	if ctx.Doc == nil {
		return Outcome{Humanized: currencyFallback}
	}

	docCurrency := ""
	if mapping, ok := Field("document_currency"); ok {
		docCurrency, _, _ = ctx.Doc.FirstText(mapping.Strategies)
	}

	counts, invalid := c.tallyCurrencyIDs(ctx.Doc)

	evidence := &model.Evidence{Currency: &model.CurrencyEvidence{
		DocumentCurrency: docCurrency,
		Counts:           counts,
		InvalidCodes:     invalid,
	}}

	if docCurrency == "" {
		return Outcome{
			Humanized: "Currency code mismatch. The Document Currency Code (BT-5) must match the currencyID " +
				"attribute on all monetary amounts. Action: verify your DocumentCurrencyCode element and ensure " +
				"all monetary amounts (TaxExclusiveAmount, TaxInclusiveAmount, PayableAmount, etc.) have matching " +
				"currencyID attributes.",
			Evidence: evidence,
		}
	}

	msg := fmt.Sprintf(
		"Currency code mismatch. The Document Currency Code (BT-5) is set to '%s', but one or more "+
			"monetary amounts in the invoice carry a different currencyID attribute. Action: check all "+
			"monetary fields (TaxExclusiveAmount, TaxInclusiveAmount, PayableAmount, and friends) and make "+
			"every currencyID attribute '%s'.",
		docCurrency, docCurrency)

	if others := c.foreignCodes(counts, docCurrency); len(others) > 0 {
		msg += fmt.Sprintf(" Conflicting codes found: %s.", strings.Join(others, ", "))
	}
	if len(invalid) > 0 {
		msg += fmt.Sprintf(" Note: %s is not a valid ISO 4217 currency code.", strings.Join(invalid, ", "))
	}

	return Outcome{Humanized: msg, Evidence: evidence}
}

// tallyCurrencyIDs counts currencyID attribute values across the monetary
// elements and collects codes that fail ISO 4217 validation.
func (c *CurrencyExplainer) tallyCurrencyIDs(doc *docquery.Document) (map[string]int, []string) {
	counts := make(map[string]int)
	for _, name := range monetaryElements {
		strategy := docquery.Strategy{
			Kind: docquery.KindLocalName,
			Path: []docquery.Step{{Name: name}},
		}
		for _, elem := range doc.FindAll(strategy) {
			code := strings.TrimSpace(elem.SelectAttrValue("currencyID", ""))
			if code != "" {
				counts[code]++
			}
		}
	}
	if len(counts) == 0 {
		return nil, nil
	}

	var invalid []string
	for code := range counts {
		if _, err := currency.ParseISO(code); err != nil {
			invalid = append(invalid, code)
		}
	}
	sort.Strings(invalid)
	return counts, invalid
}

// foreignCodes returns the codes in the tally that differ from the document
// currency, sorted for stable output.
func (c *CurrencyExplainer) foreignCodes(counts map[string]int, docCurrency string) []string {
	var out []string
	for code := range counts {
		if code != docCurrency {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
