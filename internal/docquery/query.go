package docquery

import (
	"strings"

	"github.com/beevik/etree"
)

// StrategyKind orders the fallback chain: namespace-qualified lookup first,
// then local-name matching, then bare (no-namespace) tags.
type StrategyKind int

const (
	KindQualified StrategyKind = iota
	KindLocalName
	KindBare
)

func (k StrategyKind) String() string {
	switch k {
	case KindQualified:
		return "qualified"
	case KindLocalName:
		return "local-name"
	case KindBare:
		return "bare"
	}
	return "unknown"
}

// Step is one element of a strategy path, outermost first. URI is consulted
// only by qualified strategies.
type Step struct {
	Name string
	URI  string
}

// Strategy locates elements by walking a descendant path. The first step is
// matched anywhere under the root; subsequent steps must be direct children.
type Strategy struct {
	Kind StrategyKind
	Path []Step
}

// String renders the strategy for logs, e.g. "qualified://LegalMonetaryTotal/PayableAmount".
func (s Strategy) String() string {
	names := make([]string, len(s.Path))
	for i, st := range s.Path {
		names[i] = st.Name
	}
	return s.Kind.String() + "://" + strings.Join(names, "/")
}

func (s Strategy) matches(e *etree.Element, step Step) bool {
	if e.Tag != step.Name {
		return false
	}
	switch s.Kind {
	case KindQualified:
		return e.NamespaceURI() == step.URI
	case KindLocalName:
		return true
	case KindBare:
		return e.NamespaceURI() == ""
	}
	return false
}

// FindAll returns every element the strategy selects, in document order.
func (d *Document) FindAll(s Strategy) []*etree.Element {
	if len(s.Path) == 0 {
		return nil
	}
	var heads []*etree.Element
	walk(d.Root(), func(e *etree.Element) {
		if s.matches(e, s.Path[0]) {
			heads = append(heads, e)
		}
	})

	out := heads
	for _, step := range s.Path[1:] {
		var next []*etree.Element
		for _, parent := range out {
			for _, child := range parent.ChildElements() {
				if s.matches(child, step) {
					next = append(next, child)
				}
			}
		}
		out = next
	}
	return out
}

// FindFirst returns the first element the strategy selects, or nil.
func (d *Document) FindFirst(s Strategy) *etree.Element {
	all := d.FindAll(s)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FirstText runs strategies in order and returns the first non-blank text
// value found, along with the strategy that produced it.
func (d *Document) FirstText(strategies []Strategy) (string, Strategy, bool) {
	for _, s := range strategies {
		e := d.FindFirst(s)
		if e == nil {
			continue
		}
		if text := strings.TrimSpace(e.Text()); text != "" {
			return text, s, true
		}
	}
	return "", Strategy{}, false
}

// walk visits e and all its descendants in document order. The root element
// itself is included so single-step strategies can match it.
func walk(e *etree.Element, fn func(*etree.Element)) {
	if e == nil {
		return
	}
	fn(e)
	for _, child := range e.ChildElements() {
		walk(child, fn)
	}
}

// ChildrenByLocal returns the direct children of e with the given local
// name, ignoring namespace.
func ChildrenByLocal(e *etree.Element, name string) []*etree.Element {
	var out []*etree.Element
	for _, child := range e.ChildElements() {
		if child.Tag == name {
			out = append(out, child)
		}
	}
	return out
}

// FirstDescendantText returns the trimmed text of the first descendant of e
// with the given local name, or "".
func FirstDescendantText(e *etree.Element, name string) string {
	var found string
	walk(e, func(el *etree.Element) {
		if found == "" && el != e && el.Tag == name {
			if text := strings.TrimSpace(el.Text()); text != "" {
				found = text
			}
		}
	})
	return found
}
