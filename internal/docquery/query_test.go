package docquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nsCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
const nsCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"

const queryDoc = `<?xml version="1.0"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
  xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
  xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">
  <cbc:DocumentCurrencyCode>EUR</cbc:DocumentCurrencyCode>
  <cac:LegalMonetaryTotal>
    <cbc:PayableAmount currencyID="EUR">119.00</cbc:PayableAmount>
  </cac:LegalMonetaryTotal>
  <cac:InvoiceLine>
    <cbc:ID>1</cbc:ID>
  </cac:InvoiceLine>
  <cac:InvoiceLine>
    <cbc:ID>2</cbc:ID>
  </cac:InvoiceLine>
</Invoice>`

const bareDoc = `<?xml version="1.0"?>
<Invoice>
  <DocumentCurrencyCode>GBP</DocumentCurrencyCode>
  <LegalMonetaryTotal>
    <PayableAmount>50.00</PayableAmount>
  </LegalMonetaryTotal>
</Invoice>`

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := Parse([]byte(data))
	require.NoError(t, err)
	return doc
}

func TestFindAllQualified(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	found := doc.FindAll(Strategy{
		Kind: KindQualified,
		Path: []Step{{Name: "InvoiceLine", URI: nsCAC}},
	})
	assert.Len(t, found, 2)
}

func TestFindAllQualifiedRejectsWrongURI(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	found := doc.FindAll(Strategy{
		Kind: KindQualified,
		Path: []Step{{Name: "InvoiceLine", URI: "urn:wrong"}},
	})
	assert.Empty(t, found)
}

func TestFindAllNestedPath(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	found := doc.FindAll(Strategy{
		Kind: KindQualified,
		Path: []Step{
			{Name: "LegalMonetaryTotal", URI: nsCAC},
			{Name: "PayableAmount", URI: nsCBC},
		},
	})
	require.Len(t, found, 1)
	assert.Equal(t, "119.00", found[0].Text())
	assert.Equal(t, "EUR", found[0].SelectAttrValue("currencyID", ""))
}

func TestFindAllNestedRequiresDirectChild(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	// PayableAmount is not a direct child of the root-level InvoiceLine.
	found := doc.FindAll(Strategy{
		Kind: KindLocalName,
		Path: []Step{
			{Name: "InvoiceLine"},
			{Name: "PayableAmount"},
		},
	})
	assert.Empty(t, found)
}

func TestFindAllLocalNameIgnoresNamespace(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	found := doc.FindAll(Strategy{
		Kind: KindLocalName,
		Path: []Step{{Name: "DocumentCurrencyCode"}},
	})
	require.Len(t, found, 1)
	assert.Equal(t, "EUR", found[0].Text())
}

func TestFindAllBareOnlyMatchesUnqualified(t *testing.T) {
	t.Parallel()

	namespaced := mustParse(t, queryDoc)
	assert.Empty(t, namespaced.FindAll(Strategy{
		Kind: KindBare,
		Path: []Step{{Name: "DocumentCurrencyCode"}},
	}))

	bare := mustParse(t, bareDoc)
	found := bare.FindAll(Strategy{
		Kind: KindBare,
		Path: []Step{{Name: "DocumentCurrencyCode"}},
	})
	require.Len(t, found, 1)
	assert.Equal(t, "GBP", found[0].Text())
}

func TestFirstTextFallbackOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	strategies := []Strategy{
		{Kind: KindQualified, Path: []Step{{Name: "DocumentCurrencyCode", URI: nsCBC}}},
		{Kind: KindLocalName, Path: []Step{{Name: "DocumentCurrencyCode"}}},
		{Kind: KindBare, Path: []Step{{Name: "DocumentCurrencyCode"}}},
	}

	// Namespaced document: qualified strategy wins.
	text, used, ok := mustParse(t, queryDoc).FirstText(strategies)
	require.True(t, ok)
	assert.Equal(t, "EUR", text)
	assert.Equal(t, KindQualified, used.Kind)

	// Namespace-free document: the chain falls through to local-name.
	text, used, ok = mustParse(t, bareDoc).FirstText(strategies)
	require.True(t, ok)
	assert.Equal(t, "GBP", text)
	assert.Equal(t, KindLocalName, used.Kind)
}

func TestFirstTextSkipsBlankValues(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<Invoice><ID>  </ID><Other><ID>X-1</ID></Other></Invoice>`)
	text, _, ok := doc.FirstText([]Strategy{
		{Kind: KindBare, Path: []Step{{Name: "ID"}}},
	})
	require.True(t, ok)
	assert.Equal(t, "X-1", text)
}

func TestFirstTextNotFound(t *testing.T) {
	t.Parallel()

	_, _, ok := mustParse(t, bareDoc).FirstText([]Strategy{
		{Kind: KindBare, Path: []Step{{Name: "Missing"}}},
	})
	assert.False(t, ok)
}

func TestChildrenByLocal(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	children := ChildrenByLocal(doc.Root(), "InvoiceLine")
	assert.Len(t, children, 2)
	assert.Empty(t, ChildrenByLocal(doc.Root(), "PayableAmount"))
}

func TestFirstDescendantText(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, queryDoc)
	assert.Equal(t, "119.00", FirstDescendantText(doc.Root(), "PayableAmount"))
	assert.Empty(t, FirstDescendantText(doc.Root(), "Missing"))
}

func TestStrategyString(t *testing.T) {
	t.Parallel()

	s := Strategy{
		Kind: KindQualified,
		Path: []Step{{Name: "LegalMonetaryTotal"}, {Name: "PayableAmount"}},
	}
	assert.Equal(t, "qualified://LegalMonetaryTotal/PayableAmount", s.String())
}
