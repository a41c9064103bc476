package explain

import "github.com/invoiceguard/invoiceguard/internal/docquery"

// Standard UBL namespace URIs.
const (
	nsUBL = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCAC = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// Expected identifier values for Peppol BIS 3.0 documents.
const (
	expectedProfileID       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"
	expectedCustomizationID = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
)

// FieldMapping binds a logical invoice field to its ordered fallback lookup
// strategies. The order is a deliberate robustness policy: fully qualified
// lookup first, then local-name matching for documents using a default
// namespace, then bare tags for documents with no namespace declarations.
type FieldMapping struct {
	Name        string
	Description string
	Strategies  []docquery.Strategy
}

// basicStrategies builds the standard fallback chain for a top-level cbc
// element.
func basicStrategies(name string) []docquery.Strategy {
	return []docquery.Strategy{
		{Kind: docquery.KindQualified, Path: []docquery.Step{{Name: name, URI: nsCBC}}},
		{Kind: docquery.KindLocalName, Path: []docquery.Step{{Name: name}}},
		{Kind: docquery.KindBare, Path: []docquery.Step{{Name: name}}},
	}
}

// nestedStrategies builds the fallback chain for a cbc element inside a cac
// aggregate, preferring the anchored path before falling back to the element
// anywhere in the document.
func nestedStrategies(aggregate, name string) []docquery.Strategy {
	return []docquery.Strategy{
		{Kind: docquery.KindQualified, Path: []docquery.Step{
			{Name: aggregate, URI: nsCAC},
			{Name: name, URI: nsCBC},
		}},
		{Kind: docquery.KindQualified, Path: []docquery.Step{{Name: name, URI: nsCBC}}},
		{Kind: docquery.KindLocalName, Path: []docquery.Step{
			{Name: aggregate},
			{Name: name},
		}},
		{Kind: docquery.KindLocalName, Path: []docquery.Step{{Name: name}}},
		{Kind: docquery.KindBare, Path: []docquery.Step{{Name: name}}},
	}
}

// fields maps canonical field names to their lookup definitions.
var fields = map[string]FieldMapping{
	"document_currency": {
		Name:        "document_currency",
		Description: "Invoice currency code (BT-5)",
		Strategies:  basicStrategies("DocumentCurrencyCode"),
	},
	"profile_id": {
		Name:        "profile_id",
		Description: "Peppol business process identifier (BT-23)",
		Strategies:  basicStrategies("ProfileID"),
	},
	"customization_id": {
		Name:        "customization_id",
		Description: "Document specification identifier (BT-24)",
		Strategies:  basicStrategies("CustomizationID"),
	},
	"tax_exclusive_amount": {
		Name:        "tax_exclusive_amount",
		Description: "Invoice total excluding tax (BT-109)",
		Strategies:  nestedStrategies("LegalMonetaryTotal", "TaxExclusiveAmount"),
	},
	"tax_inclusive_amount": {
		Name:        "tax_inclusive_amount",
		Description: "Invoice total including tax (BT-112)",
		Strategies:  nestedStrategies("LegalMonetaryTotal", "TaxInclusiveAmount"),
	},
	"payable_amount": {
		Name:        "payable_amount",
		Description: "Total amount due for payment (BT-115)",
		Strategies:  nestedStrategies("LegalMonetaryTotal", "PayableAmount"),
	},
	"tax_amount": {
		Name:        "tax_amount",
		Description: "Total tax amount (BT-110)",
		Strategies:  nestedStrategies("TaxTotal", "TaxAmount"),
	},
}

// Field returns the mapping for a canonical field name.
func Field(name string) (FieldMapping, bool) {
	m, ok := fields[name]
	return m, ok
}

// monetaryElements are the element names carrying a currencyID attribute.
var monetaryElements = []string{
	"TaxExclusiveAmount",
	"TaxInclusiveAmount",
	"PayableAmount",
	"LineExtensionAmount",
	"TaxAmount",
	"PriceAmount",
	"AllowanceTotalAmount",
	"ChargeTotalAmount",
}
