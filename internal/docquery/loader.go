// Package docquery provides the minimal document contract the diagnostics
// pipeline needs: parse-or-fail loading, namespace map extraction, and
// fallback element lookup against the parsed tree.
package docquery

import (
	"fmt"
	"io"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"
)

// MaxDocumentBytes caps the accepted document size. Oversized input is
// rejected as a parse failure rather than risking unbounded tree growth.
const MaxDocumentBytes = 10 << 20

// ParseError indicates the document bytes could not be turned into a tree.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("docquery: %s: %v", e.Reason, e.Err)
	}
	return "docquery: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is a parsed source document plus its namespace-prefix map.
type Document struct {
	tree       *etree.Document
	namespaces map[string]string
}

// Parse loads document bytes into a navigable tree. Non-UTF-8 encodings are
// decoded through the declared charset; undeclared entities and malformed
// markup fail with a ParseError.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}
	if len(data) > MaxDocumentBytes {
		return nil, &ParseError{Reason: fmt.Sprintf("document exceeds %d bytes", MaxDocumentBytes)}
	}

	tree := etree.NewDocument()
	tree.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	if err := tree.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Reason: "malformed document", Err: err}
	}
	if tree.Root() == nil {
		return nil, &ParseError{Reason: "document has no root element"}
	}

	return &Document{tree: tree, namespaces: extractNamespaces(tree.Root())}, nil
}

// Namespaces returns the prefix-to-URI map declared on the root element. A
// default namespace is keyed "inv", or "inv_default" if "inv" is already
// bound.
func (d *Document) Namespaces() map[string]string {
	out := make(map[string]string, len(d.namespaces))
	for k, v := range d.namespaces {
		out[k] = v
	}
	return out
}

// Root returns the document's root element.
func (d *Document) Root() *etree.Element { return d.tree.Root() }

// RootLocalName returns the local name of the root element, e.g. "Invoice".
func (d *Document) RootLocalName() string { return d.tree.Root().Tag }

func extractNamespaces(root *etree.Element) map[string]string {
	out := make(map[string]string)
	for _, attr := range root.Attr {
		switch {
		case attr.Space == "xmlns":
			out[attr.Key] = attr.Value
		case attr.Space == "" && attr.Key == "xmlns":
			key := "inv"
			if _, taken := out[key]; taken {
				key = "inv_default"
			}
			out[key] = attr.Value
		}
	}
	return out
}
