package diagnostics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoiceguard/invoiceguard/internal/model"
	"github.com/invoiceguard/invoiceguard/internal/suppression"
)

const mismatchInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cbc:CustomizationID>urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0</cbc:CustomizationID>
  <cbc:ProfileID>urn:fdc:peppol.eu:2017:poacc:billing:01:1.0</cbc:ProfileID>
  <cbc:ID>INV-42</cbc:ID>
  <cbc:DocumentCurrencyCode>EUR</cbc:DocumentCurrencyCode>
  <cac:TaxTotal>
    <cbc:TaxAmount currencyID="EUR">20.00</cbc:TaxAmount>
  </cac:TaxTotal>
  <cac:LegalMonetaryTotal>
    <cbc:TaxExclusiveAmount currencyID="EUR">100.00</cbc:TaxExclusiveAmount>
    <cbc:TaxInclusiveAmount currencyID="EUR">119.00</cbc:TaxInclusiveAmount>
    <cbc:PayableAmount currencyID="EUR">119.00</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
</Invoice>`

func newTestPipeline(t *testing.T, rules map[string][]string) *Pipeline {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dependencies.json")
	if rules != nil {
		require.NoError(t, suppression.Write(path, rules))
	}
	return New(suppression.NewFilter(context.Background(), path))
}

func TestRunFatalOnMalformedDocument(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	result := p.Run(context.Background(), "s1", nil, []byte("<Invoice><unclosed>"))

	require.NotNil(t, result.Fatal)
	assert.Equal(t, model.StatusError, result.Status())
	assert.Equal(t, "SYS-XML-001", result.Fatal.ID)
	assert.Equal(t, model.SeverityFatal, result.Fatal.Severity)
	assert.Contains(t, result.Fatal.Action.Summary, "not well-formed")
}

func TestRunPassedWhenNoFindings(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	result := p.Run(context.Background(), "s1", nil, []byte(mismatchInvoice))

	assert.Nil(t, result.Fatal)
	assert.Empty(t, result.Errors)
	assert.Equal(t, model.StatusPassed, result.Status())
}

func TestRunTotalsMismatchExplained(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	raw := []model.RawFinding{
		model.NewRawFinding("BR-CO-15", "[BR-CO-15] Invoice total amount with VAT mismatch", "/Invoice", model.SeverityError),
	}

	result := p.Run(context.Background(), "s1", raw, []byte(mismatchInvoice))

	assert.Equal(t, model.StatusRejected, result.Status())
	require.Len(t, result.Errors, 1)

	e := result.Errors[0]
	assert.Contains(t, e.Action.Summary, "Tax Exclusive Amount (BT-109): 100.00")
	assert.Contains(t, e.Action.Summary, "Tax Amount (BT-110): 20.00")
	assert.Contains(t, e.Action.Summary, "Tax Inclusive Amount (BT-112): 119.00")
	assert.Contains(t, e.Action.Fix, "BT-112")

	require.NotNil(t, e.Evidence)
	require.NotNil(t, e.Evidence.Totals)
	assert.False(t, e.Evidence.Totals.ArithmeticHolds)
	assert.Equal(t, "100.00", e.Evidence.Totals.TaxExclusive)
}

func TestRunCurrencyCascadeSuppressesTotals(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	raw := []model.RawFinding{
		model.NewRawFinding("PEPPOL-EN16931-R051", "currencyID mismatch", "", model.SeverityError),
		model.NewRawFinding("BR-CO-15", "totals mismatch", "", model.SeverityError),
	}

	result := p.Run(context.Background(), "s1", raw, []byte(mismatchInvoice))

	byID := make(map[string]model.DiagnosticError)
	for _, e := range result.Grouped {
		byID[e.ID] = e
	}

	require.Contains(t, byID, "PEPPOL-EN16931-R051")
	require.Contains(t, byID, "BR-CO-15")
	assert.False(t, byID["PEPPOL-EN16931-R051"].Suppressed)
	assert.True(t, byID["BR-CO-15"].Suppressed)
	assert.Contains(t, byID["BR-CO-15"].Action.Summary, "currency mismatch PEPPOL-EN16931-R051")

	// The per-instance listing carries the same suppression.
	for _, e := range result.Errors {
		if e.ID == "BR-CO-15" {
			assert.True(t, e.Suppressed)
		}
	}
}

func TestRunDependencySuppression(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, map[string][]string{
		"PARENT-RULE": {"CHILD-RULE"},
	})
	raw := []model.RawFinding{
		model.NewRawFinding("PARENT-RULE", "root failure", "", model.SeverityError),
		model.NewRawFinding("CHILD-RULE", "side effect", "", model.SeverityError),
	}

	result := p.Run(context.Background(), "s1", raw, []byte(mismatchInvoice))

	require.Len(t, result.Errors, 2)
	for _, e := range result.Errors {
		switch e.ID {
		case "PARENT-RULE":
			assert.False(t, e.Suppressed)
		case "CHILD-RULE":
			assert.True(t, e.Suppressed)
		}
	}
}

func TestRunUnknownRuleGetsDefaultFix(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	raw := []model.RawFinding{
		model.NewRawFinding("UNKNOWN-999", "something odd", "", model.SeverityWarning),
	}

	result := p.Run(context.Background(), "s1", raw, []byte(mismatchInvoice))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "something odd", result.Errors[0].Action.Summary)
	assert.Contains(t, result.Errors[0].Action.Fix, "Peppol BIS 3.0")
}

func TestRunCleansLocationsKeepsRaw(t *testing.T) {
	t.Parallel()

	rawLoc := `/*:Invoice[namespace-uri()='urn:oasis:names:specification:ubl:schema:xsd:Invoice-2']/cbc:ID`
	p := newTestPipeline(t, nil)
	raw := []model.RawFinding{
		model.NewRawFinding("UNKNOWN-999", "something odd", rawLoc, model.SeverityError),
	}

	result := p.Run(context.Background(), "s1", raw, []byte(mismatchInvoice))

	require.Len(t, result.Errors, 1)
	e := result.Errors[0]
	require.Len(t, e.Action.Locations, 1)
	assert.Equal(t, "/Invoice/ID", e.Action.Locations[0])
	require.Len(t, e.TechnicalDetails.RawLocations, 1)
	assert.Equal(t, rawLoc, e.TechnicalDetails.RawLocations[0])
}

func TestRunDropsMalformedFindings(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, nil)
	raw := []model.RawFinding{
		{"message": "no id"},
		model.NewRawFinding("UNKNOWN-1", "kept", "", model.SeverityError),
	}

	result := p.Run(context.Background(), "s1", raw, []byte(mismatchInvoice))
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "UNKNOWN-1", result.Errors[0].ID)
}
