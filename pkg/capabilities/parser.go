package capabilities

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// Parser turns capabilities documents into metadata. It holds no state
// besides its rules and is safe for concurrent use.
type Parser struct {
	rules Rules
}

// NewParser creates a Parser; empty rule sections fall back to defaults.
func NewParser(rules Rules) *Parser {
	return &Parser{rules: rules.withDefaults()}
}

// Parse never panics on bad input. It fails only when data is not XML or
// its root is not a capabilities document.
func (p *Parser) Parse(data []byte) Result {
	doc, err := xmltree.Parse(data)
	if err != nil {
		return Result{Error: fmt.Sprintf("parse capabilities: %v", err)}
	}
	root := doc.Root()
	if !isCapabilitiesRoot(root) {
		return Result{Error: fmt.Sprintf("parse capabilities: root element %q is not a WFS capabilities document", root.Name())}
	}

	layers := p.ExtractLayers(root)
	service := p.ExtractService(root, layers)
	return Result{
		Success:    true,
		Service:    &service,
		Layers:     layers,
		LayerCount: len(layers),
		Truncated:  doc.Truncated,
	}
}

func isCapabilitiesRoot(root *xmltree.Node) bool {
	if strings.Contains(strings.ToLower(root.Name()), "capabilities") {
		return true
	}
	return root.First("FeatureTypeList") != nil ||
		root.First("ServiceIdentification") != nil
}

// ExtractService reads service-level fields. Layers, when given, contribute
// their CRS, formats and extents to the service-wide values.
func (p *Parser) ExtractService(root *xmltree.Node, layers []Layer) ServiceMetadata {
	svc := ServiceMetadata{
		Title:        ExtractServiceTitle(root),
		Abstract:     ExtractServiceAbstract(root),
		Version:      ExtractVersion(root),
		Versions:     ExtractVersions(root),
		ProviderName: ExtractProviderName(root),
		ProviderSite: ExtractProviderSite(root),
	}
	if len(svc.Versions) == 0 {
		svc.Versions = []string{svc.Version}
	}

	crs := serviceCRS(root)
	formats := serviceOutputFormats(root)
	boxes := make([]*BBox, 0, len(layers))
	for _, l := range layers {
		crs = append(crs, l.DefaultCRS)
		crs = append(crs, l.OtherCRS...)
		formats = append(formats, l.OutputFormats...)
		boxes = append(boxes, l.BBox)
	}
	svc.CRS = lo.Uniq(lo.Compact(crs))
	svc.OutputFormats = lo.Uniq(lo.Compact(formats))
	svc.BBox = unionBBox(boxes)

	serviceName := root.Path("Service", "Name").Text()
	svc.InspireThemes = p.ExtractInspireThemes(serviceName, svc.Title, svc.Abstract)
	svc.Inspire = isInspire(root, svc.Title, svc.Abstract)
	return svc
}
