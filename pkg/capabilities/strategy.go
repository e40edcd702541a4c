package capabilities

import (
	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// textStrategy is one way of locating a text value within a scope.
type textStrategy struct {
	name    string
	extract func(scope *xmltree.Node) string
}

// firstText runs strategies in order and returns the first non-empty value
// together with the name of the strategy that produced it.
func firstText(scope *xmltree.Node, strategies []textStrategy) (string, string) {
	for _, s := range strategies {
		if v := s.extract(scope); v != "" {
			return v, s.name
		}
	}
	return "", ""
}

// childText returns the text of the first direct child called name whose
// prefix satisfies keep.
func childText(parent *xmltree.Node, name string, keep func(prefix string) bool) string {
	for _, c := range parent.Children(name) {
		if keep(c.Prefix()) {
			if t := c.Text(); t != "" {
				return t
			}
		}
	}
	return ""
}

func prefixIs(want string) func(string) bool {
	return func(p string) bool { return p == want }
}

// identificationContainers returns ServiceIdentification (OWS) and Service
// (WFS 1.0) elements directly under the root.
func identificationContainers(root *xmltree.Node) []*xmltree.Node {
	out := root.Children("ServiceIdentification")
	return append(out, root.Children("Service")...)
}

// containerText builds the standard cascade for a ServiceIdentification
// child: ows-prefixed, unprefixed, wfs-prefixed, then any descendant
// with that name.
func containerText(field string) []textStrategy {
	inContainers := func(keep func(string) bool) func(*xmltree.Node) string {
		return func(root *xmltree.Node) string {
			for _, c := range identificationContainers(root) {
				if t := childText(c, field, keep); t != "" {
					return t
				}
			}
			return ""
		}
	}
	return []textStrategy{
		{name: "ows", extract: inContainers(prefixIs("ows"))},
		{name: "unprefixed", extract: inContainers(prefixIs(""))},
		{name: "wfs", extract: inContainers(prefixIs("wfs"))},
		{name: "nested", extract: func(root *xmltree.Node) string {
			for _, c := range identificationContainers(root) {
				if t := xmltree.FirstText(c.FindAll(field)); t != "" {
					return t
				}
			}
			return ""
		}},
	}
}
