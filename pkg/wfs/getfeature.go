package wfs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

const (
	// InspireVersion and InspireFormat are forced for INSPIRE layers.
	InspireVersion = "2.0.0"
	InspireFormat  = "text/xml; subtype=gml/3.2.1"
)

// IsVersion2 reports whether v is a 2.x protocol version.
func IsVersion2(v string) bool {
	return strings.HasPrefix(strings.TrimSpace(v), "2")
}

// DefaultFormat is the GML encoding every server of the given version must
// support.
func DefaultFormat(version string) string {
	v := strings.TrimSpace(version)
	switch {
	case IsVersion2(v):
		return "application/gml+xml; version=3.2"
	case strings.HasPrefix(v, "1.1"):
		return "text/xml; subtype=gml/3.1.1"
	case strings.HasPrefix(v, "1.0"):
		return "GML2"
	default:
		return "application/gml+xml; version=3.2"
	}
}

// SelectFormat picks the output format for a GetFeature request. INSPIRE
// layers always get GML 3.2.1 over 2.0.0. Otherwise the first JSON format
// wins, then the first advertised format, then DefaultFormat.
func SelectFormat(version string, formats []string, inspire bool) (string, string) {
	if inspire {
		return InspireVersion, InspireFormat
	}
	for _, f := range formats {
		if strings.Contains(strings.ToLower(f), "json") {
			return version, f
		}
	}
	for _, f := range formats {
		if strings.TrimSpace(f) != "" {
			return version, f
		}
	}
	return version, DefaultFormat(version)
}

// GetFeatureRequest describes one GetFeature call.
type GetFeatureRequest struct {
	TypeName     string
	Version      string
	OutputFormat string
	Count        int
}

// BuildGetFeatureURL builds a GetFeature URL on top of base. 2.x requests
// use typeNames/count, older versions typeName/maxFeatures. Conflicting
// parameters already present in base are replaced.
func BuildGetFeatureURL(base string, req GetFeatureRequest) (string, error) {
	u, err := CheckURLSyntax(base)
	if err != nil {
		return "", fmt.Errorf("invalid service url %q: %w", base, err)
	}
	if req.TypeName == "" {
		return "", fmt.Errorf("missing type name")
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	q := stripParams(u.Query(),
		"service", "request", "version",
		"typeName", "typeNames", "count", "maxFeatures", "outputFormat")
	q.Set("service", "WFS")
	q.Set("request", "GetFeature")
	q.Set("version", req.Version)
	if IsVersion2(req.Version) {
		q.Set("typeNames", req.TypeName)
		q.Set("count", strconv.Itoa(req.Count))
	} else {
		q.Set("typeName", req.TypeName)
		q.Set("maxFeatures", strconv.Itoa(req.Count))
	}
	if req.OutputFormat != "" {
		q.Set("outputFormat", req.OutputFormat)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Outcome is the four-way classification of a GetFeature response.
type Outcome string

const (
	OutcomeFeatures  Outcome = "success_features"
	OutcomeEmpty     Outcome = "success_empty"
	OutcomeException Outcome = "protocol_exception"
	OutcomeMalformed Outcome = "malformed"
)

// Success reports whether the outcome proves the layer is queryable.
func (o Outcome) Success() bool {
	return o == OutcomeFeatures || o == OutcomeEmpty
}

// Classification is the result of ClassifyResponse.
type Classification struct {
	Outcome       Outcome
	Kind          BodyKind
	FeatureCount  int
	ExceptionCode string
	ExceptionText string
	Detail        string
}

// ClassifyResponse sorts a GetFeature body into one of the four outcomes.
func ClassifyResponse(raw []byte, contentType string) Classification {
	body := DecodeBody(raw, contentType)
	switch body.Kind {
	case BodyJSON:
		return classifyJSON(body.JSON)
	case BodyXML:
		return classifyXML(body.XML.Root())
	default:
		detail := "empty body"
		if body.Err != nil {
			detail = body.Err.Error()
		}
		return Classification{Outcome: OutcomeMalformed, Kind: BodyUnparseable, Detail: detail}
	}
}

func classifyJSON(v any) Classification {
	c := Classification{Kind: BodyJSON, Outcome: OutcomeEmpty}
	obj, ok := v.(map[string]any)
	if !ok {
		c.Outcome = OutcomeMalformed
		c.Detail = "json document is not an object"
		return c
	}

	if excs, ok := obj["exceptions"].([]any); ok && len(excs) > 0 {
		c.Outcome = OutcomeException
		var texts []string
		for _, e := range excs {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if c.ExceptionCode == "" {
				c.ExceptionCode = jsonString(m["code"])
			}
			if t := jsonString(m["text"]); t != "" {
				texts = append(texts, t)
			}
		}
		c.ExceptionText = strings.Join(texts, " | ")
		return c
	}
	if e, ok := obj["error"].(map[string]any); ok {
		c.Outcome = OutcomeException
		c.ExceptionCode = jsonString(e["code"])
		c.ExceptionText = jsonString(e["message"])
		return c
	}

	if features, ok := obj["features"].([]any); ok {
		c.FeatureCount = len(features)
		if c.FeatureCount > 0 {
			c.Outcome = OutcomeFeatures
		}
		return c
	}
	if jsonString(obj["type"]) == "FeatureCollection" {
		c.Detail = "feature collection without features array"
		return c
	}
	c.Outcome = OutcomeMalformed
	c.Detail = "json object is not a feature collection"
	return c
}

func jsonString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func classifyXML(root *xmltree.Node) Classification {
	c := Classification{Kind: BodyXML}

	if exc, ok := ParseException(root); ok {
		c.Outcome = OutcomeException
		c.ExceptionCode = exc.Code
		c.ExceptionText = strings.Join(exc.Texts, " | ")
		return c
	}
	if root.Is("html") {
		c.Outcome = OutcomeMalformed
		c.Detail = "html page instead of a feature collection"
		return c
	}

	c.FeatureCount = countMembers(root)
	switch {
	case c.FeatureCount > 0:
		c.Outcome = OutcomeFeatures
	case root.Is("FeatureCollection"):
		c.Outcome = OutcomeEmpty
	default:
		c.Outcome = OutcomeMalformed
		c.Detail = "unexpected root element " + root.Name()
	}
	return c
}

// countMembers counts GML feature members directly under the collection:
// featureMember (GML 2/3), member (WFS 2.0) and the children of
// featureMembers.
func countMembers(root *xmltree.Node) int {
	n := 0
	for _, child := range root.Elements() {
		switch {
		case child.Is("featureMember"), child.Is("member"):
			n++
		case child.Is("featureMembers"):
			n += len(child.Elements())
		}
	}
	return n
}
