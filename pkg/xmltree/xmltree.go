// Package xmltree turns raw XML into a namespace-agnostic element tree.
//
// Element and attribute lookups match on the local name only and ignore
// ASCII case, so callers never special-case wfs:, ows: or unprefixed
// documents. Repeated elements are always returned as slices in document
// order, even when only one of them exists.
package xmltree

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// ErrNotXML is returned when the input cannot be tokenized into any element.
var ErrNotXML = errors.New("input is not XML")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Document is a parsed XML document.
type Document struct {
	doc *etree.Document

	// Truncated is set when the input ended (or broke) before the root
	// element was closed; the tree holds everything read up to that point.
	Truncated bool
	// ParseError is the tokenizer error that caused Truncated, if any.
	ParseError error
}

// Parse reads data into a Document. Unknown entities, unquoted attributes
// and non UTF-8 encodings declared in the prolog are tolerated. A broken or
// cut-off document still parses as long as its root element has at least
// one complete child element.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrNotXML)
	}

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}

	err := doc.ReadFromBytes(data)
	root := doc.Root()
	if root == nil {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotXML, err)
		}
		return nil, fmt.Errorf("%w: no root element", ErrNotXML)
	}

	out := &Document{doc: doc}
	if err != nil {
		if len(root.ChildElements()) == 0 {
			return nil, fmt.Errorf("%w: %v", ErrNotXML, err)
		}
		out.Truncated = true
		out.ParseError = err
	}
	return out, nil
}

// Root returns the document element.
func (d *Document) Root() *Node {
	if d == nil {
		return nil
	}
	return wrap(d.doc.Root())
}

// Node is a single element. All methods are safe on a nil *Node and
// return zero values, which keeps fallback chains free of nil checks.
type Node struct {
	el *etree.Element
}

func wrap(el *etree.Element) *Node {
	if el == nil {
		return nil
	}
	return &Node{el: el}
}

// Name returns the local element name without prefix.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	return n.el.Tag
}

// Prefix returns the namespace prefix as written in the source ("" if none).
func (n *Node) Prefix() string {
	if n == nil {
		return ""
	}
	return n.el.Space
}

// Is reports whether the local name equals name, ignoring case.
func (n *Node) Is(name string) bool {
	return n != nil && strings.EqualFold(n.el.Tag, name)
}

// Attr returns the value of the attribute with the given local name,
// ignoring prefix and case. Namespace declarations are not attributes.
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// Namespaces returns the namespace URIs declared on this element.
func (n *Node) Namespaces() []string {
	if n == nil {
		return nil
	}
	var out []string
	for _, a := range n.el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			out = append(out, a.Value)
		}
	}
	return out
}

// Text returns the element's own character data (CDATA included), trimmed.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for _, tok := range n.el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// Parent returns the enclosing element, or nil for the root.
func (n *Node) Parent() *Node {
	if n == nil {
		return nil
	}
	p := n.el.Parent()
	if p == nil || p.Tag == "" {
		// etree models the document itself as an unnamed element
		return nil
	}
	return wrap(p)
}

// Elements returns all child elements in document order.
func (n *Node) Elements() []*Node {
	if n == nil {
		return nil
	}
	children := n.el.ChildElements()
	out := make([]*Node, 0, len(children))
	for _, c := range children {
		out = append(out, wrap(c))
	}
	return out
}

// Children returns the direct children with the given local name.
func (n *Node) Children(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.el.ChildElements() {
		if strings.EqualFold(c.Tag, name) {
			out = append(out, wrap(c))
		}
	}
	return out
}

// First returns the first direct child with the given local name.
func (n *Node) First(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.el.ChildElements() {
		if strings.EqualFold(c.Tag, name) {
			return wrap(c)
		}
	}
	return nil
}

// Path descends through direct children, taking the first match per step.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.First(name)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// PathAll follows every matching branch and returns all elements reached
// by the full path, in document order.
func (n *Node) PathAll(names ...string) []*Node {
	if n == nil {
		return nil
	}
	level := []*Node{n}
	for _, name := range names {
		var next []*Node
		for _, cur := range level {
			next = append(next, cur.Children(name)...)
		}
		if len(next) == 0 {
			return nil
		}
		level = next
	}
	return level
}

// FindAll returns every descendant (not the node itself) with the given
// local name, depth first in document order.
func (n *Node) FindAll(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, c := range el.ChildElements() {
			if strings.EqualFold(c.Tag, name) {
				out = append(out, wrap(c))
			}
			walk(c)
		}
	}
	walk(n.el)
	return out
}

// Find returns the first descendant with the given local name.
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	var found *etree.Element
	var walk func(el *etree.Element) bool
	walk = func(el *etree.Element) bool {
		for _, c := range el.ChildElements() {
			if strings.EqualFold(c.Tag, name) {
				found = c
				return true
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(n.el)
	return wrap(found)
}

// FirstText returns the first non-empty text among nodes.
func FirstText(nodes []*Node) string {
	for _, n := range nodes {
		if t := n.Text(); t != "" {
			return t
		}
	}
	return ""
}
