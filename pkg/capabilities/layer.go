package capabilities

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/02loveslollipop/wfs-catalog/internal/textfold"
	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// featureTypes returns the FeatureType elements of the document. Documents
// without a FeatureTypeList are searched as a whole.
func featureTypes(root *xmltree.Node) []*xmltree.Node {
	if list := root.PathAll("FeatureTypeList", "FeatureType"); len(list) > 0 {
		return list
	}
	return root.FindAll("FeatureType")
}

func layerName(ft *xmltree.Node) string {
	if n := ft.First("Name").Text(); n != "" {
		return n
	}
	return ft.Attr("name")
}

func optionalText(n *xmltree.Node) *string {
	if t := n.Text(); t != "" {
		return &t
	}
	return nil
}

// ExtractLayer reads one FeatureType. ok is false when it has no name.
func (p *Parser) ExtractLayer(ft *xmltree.Node) (Layer, bool) {
	name := layerName(ft)
	if name == "" {
		return Layer{}, false
	}

	layer := Layer{
		Name:          name,
		Title:         optionalText(ft.First("Title")),
		Abstract:      optionalText(ft.First("Abstract")),
		OutputFormats: layerFormats(ft),
		BBox:          ExtractBBox(ft),
	}
	layer.DefaultCRS, layer.OtherCRS = layerCRS(ft)

	title, abstract := lo.FromPtr(layer.Title), lo.FromPtr(layer.Abstract)
	layer.Keywords = declaredKeywords(ft)
	if len(layer.Keywords) == 0 {
		layer.Keywords = p.synthesizeKeywords(name, title, abstract)
	}
	layer.InspireThemes = p.layerThemes(name, title, abstract, layer.Keywords)
	layer.GeometryType = p.inferGeometry(name, title)
	return layer, true
}

// ExtractLayers reads all named FeatureTypes in document order. Names are
// unique within a service; a repeated name keeps its first FeatureType.
func (p *Parser) ExtractLayers(root *xmltree.Node) []Layer {
	types := featureTypes(root)
	layers := make([]Layer, 0, len(types))
	seen := make(map[string]struct{}, len(types))
	for _, ft := range types {
		layer, ok := p.ExtractLayer(ft)
		if !ok {
			continue
		}
		if _, dup := seen[layer.Name]; dup {
			continue
		}
		seen[layer.Name] = struct{}{}
		layers = append(layers, layer)
	}
	return layers
}

// layerCRS handles DefaultCRS/OtherCRS (2.0), DefaultSRS/OtherSRS (1.1)
// and repeated SRS elements (1.0). The default is never repeated in other.
func layerCRS(ft *xmltree.Node) (string, []string) {
	def := ""
	for _, name := range []string{"DefaultCRS", "DefaultSRS", "SRS"} {
		if def = ft.First(name).Text(); def != "" {
			break
		}
	}

	var others []string
	for _, name := range []string{"OtherCRS", "OtherSRS", "SRS"} {
		for _, n := range ft.Children(name) {
			others = append(others, n.Text())
		}
	}

	def = normalizeOne(def)
	others = lo.Without(normalizeCRSList(others), def)
	return def, others
}

func normalizeOne(crs string) string {
	if list := normalizeCRSList([]string{crs}); len(list) > 0 {
		return list[0]
	}
	return ""
}

func layerFormats(ft *xmltree.Node) []string {
	var out []string
	for _, f := range ft.PathAll("OutputFormats", "Format") {
		out = append(out, f.Text())
	}
	return lo.Uniq(lo.Compact(out))
}

// declaredKeywords collects Keywords/Keyword entries (OWS) or the comma
// separated text of a bare Keywords element (WFS 1.0).
func declaredKeywords(ft *xmltree.Node) []string {
	var out []string
	for _, kw := range ft.Children("Keywords") {
		entries := kw.Children("Keyword")
		if len(entries) == 0 {
			for _, part := range strings.Split(kw.Text(), ",") {
				out = append(out, strings.TrimSpace(part))
			}
			continue
		}
		for _, e := range entries {
			out = append(out, e.Text())
		}
	}
	return lo.Uniq(lo.Compact(out))
}

// synthesizeKeywords derives keywords from name, title and abstract using
// the rule table. Each label appears at most once.
func (p *Parser) synthesizeKeywords(name, title, abstract string) []string {
	text := textfold.Join(name, title, abstract)
	var out []string
	for _, rule := range p.rules.Keywords {
		if textfold.ContainsAny(text, rule.Patterns) {
			out = append(out, rule.Label)
		}
	}
	return lo.Uniq(out)
}

// inferGeometry checks point, line and polygon patterns in that order.
func (p *Parser) inferGeometry(name, title string) GeometryType {
	text := textfold.Join(name, title)
	switch {
	case textfold.ContainsAny(text, p.rules.Geometry.Point):
		return GeometryPoint
	case textfold.ContainsAny(text, p.rules.Geometry.Line):
		return GeometryLine
	case textfold.ContainsAny(text, p.rules.Geometry.Polygon):
		return GeometryPolygon
	default:
		return GeometryUnknown
	}
}

var themeURI = regexp.MustCompile(`inspire\.ec\.europa\.eu/theme/([a-z]{2})\b`)

// ExtractInspireThemes matches free text against the INSPIRE theme table.
// Codes come back in table order; the result is empty, never nil.
func (p *Parser) ExtractInspireThemes(texts ...string) []string {
	text := textfold.Join(texts...)
	uriCodes := lo.Map(themeURI.FindAllStringSubmatch(text, -1), func(m []string, _ int) string {
		return m[1]
	})

	out := []string{}
	for _, rule := range p.rules.InspireThemes {
		if textfold.ContainsAny(text, rule.Patterns) || lo.Contains(uriCodes, rule.Label) {
			out = append(out, rule.Label)
		}
	}
	return out
}

// layerThemes adds the theme named by an INSPIRE application schema prefix
// (cp:CadastralParcel) to the text matches.
func (p *Parser) layerThemes(name, title, abstract string, keywords []string) []string {
	texts := append([]string{name, title, abstract}, keywords...)
	themes := p.ExtractInspireThemes(texts...)

	prefix, _, found := strings.Cut(name, ":")
	if !found {
		return themes
	}
	// tn-ro:RoadLink belongs to tn
	prefix, _, _ = strings.Cut(strings.ToLower(prefix), "-")
	for _, rule := range p.rules.InspireThemes {
		if rule.Label == prefix && !lo.Contains(themes, prefix) {
			return p.orderThemes(append(themes, prefix))
		}
	}
	return themes
}

func (p *Parser) orderThemes(codes []string) []string {
	out := []string{}
	for _, rule := range p.rules.InspireThemes {
		if lo.Contains(codes, rule.Label) {
			out = append(out, rule.Label)
		}
	}
	return out
}
