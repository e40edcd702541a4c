package wfs

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// BodyKind tags the decoded representation held by a Body.
type BodyKind string

const (
	BodyJSON        BodyKind = "json"
	BodyXML         BodyKind = "xml"
	BodyUnparseable BodyKind = "unparseable"
)

// Body is a response payload decoded as exactly one of JSON or XML.
// JSON is set only for BodyJSON and XML only for BodyXML.
type Body struct {
	Kind BodyKind
	JSON any
	XML  *xmltree.Document
	Raw  []byte
	Err  error
}

// DecodeBody decodes raw guided by contentType, falling back to sniffing
// when the declared type is missing or wrong.
func DecodeBody(raw []byte, contentType string) Body {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	if len(trimmed) == 0 {
		return Body{Kind: BodyUnparseable, Raw: raw, Err: xmltree.ErrNotXML}
	}

	jsonFirst := strings.Contains(strings.ToLower(contentType), "json") ||
		trimmed[0] == '{' || trimmed[0] == '['

	var jsonErr error
	if jsonFirst {
		var v any
		if jsonErr = json.Unmarshal(trimmed, &v); jsonErr == nil {
			return Body{Kind: BodyJSON, JSON: v, Raw: raw}
		}
	}

	doc, err := xmltree.Parse(trimmed)
	if err == nil {
		return Body{Kind: BodyXML, XML: doc, Raw: raw}
	}
	if jsonErr != nil {
		err = jsonErr
	}
	return Body{Kind: BodyUnparseable, Raw: raw, Err: err}
}
