package explain

import (
	"fmt"
	"strings"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// ProfileExplainer covers PEPPOL-EN16931-R001: the invoice must carry a
// ProfileID identifying the business process.
type ProfileExplainer struct{}

const profileFallback = "Missing or invalid business process identifier. The invoice must include a " +
	"ProfileID element specifying the Peppol business process (e.g. '" + expectedProfileID + "')."

// Explain reports whether ProfileID is missing, empty, or present with an
// unexpected value.
func (p *ProfileExplainer) Explain(finding model.NormalizedFinding, ctx *Context) Outcome {
	if ctx.Doc == nil {
		return Outcome{Humanized: profileFallback}
	}

	present, value := identifierValue(ctx, "profile_id")
	evidence := &model.Evidence{Identifier: &model.IdentifierEvidence{
		Element: "ProfileID",
		Present: present,
		Value:   value,
	}}

	var msg string
	switch {
	case !present:
		msg = "Missing business process identifier. Add a ProfileID element with value '" +
			expectedProfileID + "' for Peppol BIS 3.0 invoicing. This identifies which business " +
			"process the invoice follows."
	case value == "":
		msg = "Empty business process identifier. The ProfileID element exists but is empty. " +
			"For Peppol BIS 3.0 invoicing, use '" + expectedProfileID + "'."
	default:
		msg = fmt.Sprintf("Invalid business process identifier. Found ProfileID: '%s'. "+
			"For Peppol BIS 3.0 invoicing, use '%s'.", value, expectedProfileID)
	}

	return Outcome{Humanized: msg, Evidence: evidence}
}

// CustomizationExplainer covers UBL-CR-001: the document must carry a
// CustomizationID identifying the document specification.
type CustomizationExplainer struct{}

const customizationFallback = "Missing or invalid document specification identifier. The document must " +
	"include a CustomizationID element identifying the specification (e.g. Peppol BIS 3.0: '" +
	expectedCustomizationID + "')."

// Explain reports whether CustomizationID is missing, empty, or present with
// an unexpected value, and names the detected document type.
func (c *CustomizationExplainer) Explain(finding model.NormalizedFinding, ctx *Context) Outcome {
	if ctx.Doc == nil {
		return Outcome{Humanized: customizationFallback}
	}

	present, value := identifierValue(ctx, "customization_id")
	docType := ctx.Doc.RootLocalName()
	evidence := &model.Evidence{Identifier: &model.IdentifierEvidence{
		Element:      "CustomizationID",
		Present:      present,
		Value:        value,
		DocumentType: docType,
	}}

	var parts []string
	switch {
	case !present:
		parts = append(parts, "Missing document specification identifier. Add a CustomizationID element.")
	case value == "":
		parts = append(parts, "Empty document specification identifier. The CustomizationID element exists but is empty.")
	default:
		parts = append(parts, fmt.Sprintf("Invalid document specification identifier. Found CustomizationID: '%s'.", value))
	}
	parts = append(parts, "For Peppol BIS 3.0, use '"+expectedCustomizationID+"'.")
	if docType != "" {
		parts = append(parts, fmt.Sprintf("Document type detected: %s.", docType))
	}
	parts = append(parts, "This identifier specifies which business document specification and rules the document should comply with.")

	return Outcome{Humanized: strings.Join(parts, " "), Evidence: evidence}
}

// identifierValue runs the fallback chain for an identifier field and
// distinguishes "element absent" from "element present but blank".
func identifierValue(ctx *Context, field string) (present bool, value string) {
	mapping, ok := Field(field)
	if !ok {
		return false, ""
	}
	if text, _, found := ctx.Doc.FirstText(mapping.Strategies); found {
		return true, text
	}
	// FirstText skips blank elements; probe again for bare presence.
	for _, s := range mapping.Strategies {
		if ctx.Doc.FindFirst(s) != nil {
			return true, ""
		}
	}
	return false, ""
}
