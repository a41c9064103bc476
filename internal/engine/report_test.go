package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const varlReport = `<?xml version="1.0" encoding="UTF-8"?>
<rep:report xmlns:rep="http://www.xoev.de/de/validator/varl/1" valid="false">
  <rep:assessment>
    <rep:reject>
      <rep:explanation>rejected</rep:explanation>
    </rep:reject>
  </rep:assessment>
  <rep:scenarioMatched>
    <rep:validationStepResult id="val-sch.1" valid="false">
      <rep:message code="BR-CO-15" level="error" xpathLocation="/ubl:Invoice/cac:LegalMonetaryTotal">[BR-CO-15] totals mismatch</rep:message>
      <rep:message code="PEPPOL-EN16931-R051" level="warning">currencyID mismatch</rep:message>
    </rep:validationStepResult>
  </rep:scenarioMatched>
</rep:report>`

const svrlReport = `<?xml version="1.0"?>
<svrl:schematron-output xmlns:svrl="http://purl.oclc.org/dsdl/svrl">
  <svrl:active-pattern name="rules"/>
  <svrl:failed-assert id="BR-CO-16" flag="fatal" location="/*:Invoice[1]/*:TaxTotal[1]" test="...">
    <svrl:text>line VAT sum mismatch</svrl:text>
  </svrl:failed-assert>
</svrl:schematron-output>`

func TestParseReportVARL(t *testing.T) {
	t.Parallel()

	findings, err := ParseReport(strings.NewReader(varlReport))
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, "BR-CO-15", findings[0]["id"])
	assert.Equal(t, "[BR-CO-15] totals mismatch", findings[0]["message"])
	assert.Equal(t, "/ubl:Invoice/cac:LegalMonetaryTotal", findings[0]["location"])
	assert.Equal(t, "error", findings[0]["severity"])

	assert.Equal(t, "PEPPOL-EN16931-R051", findings[1]["id"])
	assert.Equal(t, "warning", findings[1]["severity"])
	assert.NotContains(t, findings[1], "location")
}

func TestParseReportSVRL(t *testing.T) {
	t.Parallel()

	findings, err := ParseReport(strings.NewReader(svrlReport))
	require.NoError(t, err)
	require.Len(t, findings, 1)

	assert.Equal(t, "BR-CO-16", findings[0]["id"])
	assert.Equal(t, "line VAT sum mismatch", findings[0]["message"])
	assert.Equal(t, "/*:Invoice[1]/*:TaxTotal[1]", findings[0]["location"])
	assert.Equal(t, "fatal", findings[0]["severity"])
}

func TestParseReportIgnoresNamespacePrefix(t *testing.T) {
	t.Parallel()

	report := `<report xmlns:x="urn:whatever">
	  <x:message code="R-1" level="error">prefixed</x:message>
	  <message code="R-2" level="error">bare</message>
	</report>`

	findings, err := ParseReport(strings.NewReader(report))
	require.NoError(t, err)
	assert.Len(t, findings, 2)
}

func TestParseReportSkipsIncompleteEntries(t *testing.T) {
	t.Parallel()

	report := `<report>
	  <message code="" level="error">no code</message>
	  <message code="R-1" level="error">   </message>
	  <message code="R-2" level="error">kept</message>
	</report>`

	findings, err := ParseReport(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "R-2", findings[0]["id"])
}

func TestParseReportSeverityMapping(t *testing.T) {
	t.Parallel()

	report := `<report>
	  <message code="A" level="WARNING">a</message>
	  <message code="B" level="warn">b</message>
	  <message code="C" level="fatal">c</message>
	  <message code="D" level="information">d</message>
	  <message code="E">e</message>
	</report>`

	findings, err := ParseReport(strings.NewReader(report))
	require.NoError(t, err)
	require.Len(t, findings, 5)

	assert.Equal(t, "warning", findings[0]["severity"])
	assert.Equal(t, "warning", findings[1]["severity"])
	assert.Equal(t, "fatal", findings[2]["severity"])
	assert.Equal(t, "error", findings[3]["severity"])
	assert.Equal(t, "error", findings[4]["severity"])
}

func TestParseReportNoFindingsIsValid(t *testing.T) {
	t.Parallel()

	findings, err := ParseReport(strings.NewReader(`<report valid="true"/>`))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestParseReportEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := ParseReport(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseReportGarbageInput(t *testing.T) {
	t.Parallel()

	_, err := ParseReport(strings.NewReader("{\"not\": \"xml\"}"))
	assert.Error(t, err)
}
