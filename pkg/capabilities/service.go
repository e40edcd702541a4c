package capabilities

import (
	"strings"

	"github.com/samber/lo"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

var titleStrategies = append(containerText("Title"), serviceNameStrategy)

var abstractStrategies = containerText("Abstract")

var serviceNameStrategy = textStrategy{name: "service-name", extract: func(root *xmltree.Node) string {
	if t := root.Find("ServiceName").Text(); t != "" {
		return t
	}
	return root.Path("Service", "Name").Text()
}}

// ExtractServiceTitle never returns an empty string.
func ExtractServiceTitle(root *xmltree.Node) string {
	if t, _ := firstText(root, titleStrategies); t != "" {
		return t
	}
	return UnknownTitle
}

// ExtractServiceAbstract never returns an empty string.
func ExtractServiceAbstract(root *xmltree.Node) string {
	if t, _ := firstText(root, abstractStrategies); t != "" {
		return t
	}
	return NoAbstract
}

var versionStrategies = []textStrategy{
	{name: "root-attribute", extract: func(root *xmltree.Node) string { return root.Attr("version") }},
	{name: "service-type-version", extract: func(root *xmltree.Node) string {
		return xmltree.FirstText(root.FindAll("ServiceTypeVersion"))
	}},
	{name: "fingerprint-2.0", extract: func(root *xmltree.Node) string {
		if root.Find("WGS84BoundingBox") != nil || root.Find("DefaultCRS") != nil {
			return "2.0.0"
		}
		return ""
	}},
	{name: "fingerprint-1.1", extract: func(root *xmltree.Node) string {
		if root.Find("LatLongBoundingBox") != nil || root.Find("SRS") != nil {
			return "1.1.0"
		}
		return ""
	}},
}

// ExtractVersion returns the protocol version the document was written in.
func ExtractVersion(root *xmltree.Node) string {
	if v, _ := firstText(root, versionStrategies); v != "" {
		return v
	}
	return FallbackVersion
}

// ExtractVersions lists every version the service advertises, root version
// first.
func ExtractVersions(root *xmltree.Node) []string {
	versions := []string{root.Attr("version")}
	for _, n := range root.FindAll("ServiceTypeVersion") {
		versions = append(versions, n.Text())
	}
	return lo.Uniq(lo.Compact(versions))
}

var providerNameStrategies = []textStrategy{
	{name: "service-provider", extract: func(root *xmltree.Node) string {
		return root.Path("ServiceProvider", "ProviderName").Text()
	}},
	{name: "provider-name", extract: func(root *xmltree.Node) string {
		return xmltree.FirstText(root.FindAll("ProviderName"))
	}},
	{name: "contact-primary", extract: func(root *xmltree.Node) string {
		for _, p := range root.FindAll("ContactPersonPrimary") {
			if t := p.First("ContactOrganization").Text(); t != "" {
				return t
			}
		}
		return ""
	}},
	{name: "contact-organization", extract: func(root *xmltree.Node) string {
		return xmltree.FirstText(root.FindAll("ContactOrganization"))
	}},
}

// ExtractProviderName returns nil when no provider is named.
func ExtractProviderName(root *xmltree.Node) *string {
	if v, _ := firstText(root, providerNameStrategies); v != "" {
		return &v
	}
	return nil
}

var providerSiteStrategies = []textStrategy{
	{name: "site-href", extract: func(root *xmltree.Node) string {
		for _, n := range root.FindAll("ProviderSite") {
			if h := n.Attr("href"); h != "" {
				return h
			}
		}
		return ""
	}},
	{name: "site-text", extract: func(root *xmltree.Node) string {
		return xmltree.FirstText(root.FindAll("ProviderSite"))
	}},
	{name: "online-resource", extract: func(root *xmltree.Node) string {
		for _, svc := range root.Children("Service") {
			for _, n := range svc.Children("OnlineResource") {
				if h := n.Attr("href"); h != "" {
					return h
				}
				if t := n.Text(); t != "" {
					return t
				}
			}
		}
		return ""
	}},
}

// ExtractProviderSite prefers a link attribute over element text and
// returns nil when no site is given.
func ExtractProviderSite(root *xmltree.Node) *string {
	if v, _ := firstText(root, providerSiteStrategies); v != "" {
		return &v
	}
	return nil
}

// operationParameter returns the values of a named parameter, either on
// the named operation or (for operation == "") at OperationsMetadata level.
func operationParameter(root *xmltree.Node, operation, parameter string) []string {
	meta := root.First("OperationsMetadata")
	if meta == nil {
		return nil
	}
	scopes := []*xmltree.Node{meta}
	if operation != "" {
		scopes = nil
		for _, op := range meta.Children("Operation") {
			if strings.EqualFold(op.Attr("name"), operation) {
				scopes = append(scopes, op)
			}
		}
	}

	var values []string
	for _, scope := range scopes {
		for _, p := range scope.Children("Parameter") {
			if !strings.EqualFold(p.Attr("name"), parameter) {
				continue
			}
			for _, v := range p.PathAll("AllowedValues", "Value") {
				values = append(values, v.Text())
			}
			for _, v := range p.Children("Value") {
				values = append(values, v.Text())
			}
		}
	}
	return lo.Uniq(lo.Compact(values))
}

var formatStrategies = []struct {
	name    string
	extract func(root *xmltree.Node) []string
}{
	{name: "getfeature-parameter", extract: func(root *xmltree.Node) []string {
		return operationParameter(root, "GetFeature", "outputFormat")
	}},
	{name: "global-parameter", extract: func(root *xmltree.Node) []string {
		return operationParameter(root, "", "outputFormat")
	}},
	{name: "result-format", extract: func(root *xmltree.Node) []string {
		var out []string
		for _, rf := range root.PathAll("Capability", "Request", "GetFeature", "ResultFormat") {
			for _, f := range rf.Elements() {
				out = append(out, f.Name())
			}
		}
		return lo.Uniq(out)
	}},
}

// serviceOutputFormats returns the service-wide GetFeature formats, or nil
// when the document declares none at service level.
func serviceOutputFormats(root *xmltree.Node) []string {
	for _, s := range formatStrategies {
		if v := s.extract(root); len(v) > 0 {
			return v
		}
	}
	return nil
}

// serviceCRS returns srsName values declared in OperationsMetadata.
func serviceCRS(root *xmltree.Node) []string {
	values := append(operationParameter(root, "GetFeature", "srsName"), operationParameter(root, "", "srsName")...)
	return normalizeCRSList(values)
}

func normalizeCRSList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if c := wfs.NormalizeCRS(v); c != "" {
			out = append(out, c)
		}
	}
	return lo.Uniq(out)
}

const inspireNamespace = "inspire.ec.europa.eu"

// isInspire reports INSPIRE conformance: an INSPIRE namespace on the root,
// an ExtendedCapabilities section, or INSPIRE named in title or abstract.
func isInspire(root *xmltree.Node, title, abstract string) bool {
	for _, ns := range root.Namespaces() {
		if strings.Contains(strings.ToLower(ns), inspireNamespace) {
			return true
		}
	}
	if root.Find("ExtendedCapabilities") != nil {
		return true
	}
	return strings.Contains(strings.ToUpper(title+" "+abstract), "INSPIRE")
}
