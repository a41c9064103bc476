package engine

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// varlMessage is one <rep:message> entry in a KoSIT validation report.
type varlMessage struct {
	Code          string `xml:"code,attr"`
	Level         string `xml:"level,attr"`
	XPathLocation string `xml:"xpathLocation,attr"`
	Location      string `xml:"location,attr"`
	Text          string `xml:",chardata"`
}

// svrlFailedAssert is one <svrl:failed-assert> entry in raw Schematron output.
type svrlFailedAssert struct {
	ID       string `xml:"id,attr"`
	Flag     string `xml:"flag,attr"`
	Location string `xml:"location,attr"`
	Text     string `xml:"text"`
}

// ParseReport extracts findings from a validator report. Both the aggregated
// report format (message elements with code and level attributes) and raw
// SVRL (failed-assert elements) are recognized, matched by local name so
// namespace prefix changes across validator versions do not break parsing.
func ParseReport(r io.Reader) ([]model.RawFinding, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "engine: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var findings []model.RawFinding
	sawElement := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "engine: read report token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true

		switch se.Name.Local {
		case "message":
			var msg varlMessage
			if err := decoder.DecodeElement(&msg, &se); err != nil {
				return nil, eris.Wrap(err, "engine: decode report message")
			}
			if f, ok := messageFinding(msg); ok {
				findings = append(findings, f)
			}
		case "failed-assert":
			var assert svrlFailedAssert
			if err := decoder.DecodeElement(&assert, &se); err != nil {
				return nil, eris.Wrap(err, "engine: decode failed-assert")
			}
			if f, ok := assertFinding(assert); ok {
				findings = append(findings, f)
			}
		}
	}

	if !sawElement {
		return nil, eris.New("engine: report contains no XML elements")
	}
	return findings, nil
}

func messageFinding(msg varlMessage) (model.RawFinding, bool) {
	id := strings.TrimSpace(msg.Code)
	text := strings.TrimSpace(msg.Text)
	if id == "" || text == "" {
		return nil, false
	}
	location := msg.XPathLocation
	if location == "" {
		location = msg.Location
	}
	return model.NewRawFinding(id, text, location, levelSeverity(msg.Level)), true
}

func assertFinding(assert svrlFailedAssert) (model.RawFinding, bool) {
	id := strings.TrimSpace(assert.ID)
	text := strings.TrimSpace(assert.Text)
	if id == "" || text == "" {
		return nil, false
	}
	return model.NewRawFinding(id, text, assert.Location, levelSeverity(assert.Flag)), true
}

func levelSeverity(level string) model.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning", "warn":
		return model.SeverityWarning
	case "fatal":
		return model.SeverityFatal
	default:
		return model.SeverityError
	}
}
