package wfs

import (
	"strings"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// ServiceException is a protocol-level error reported by the server, either
// as an OWS ExceptionReport or a WFS 1.0 ServiceExceptionReport.
type ServiceException struct {
	Code    string
	Locator string
	Texts   []string
}

// Message renders the exception for logs and catalog notes.
func (e ServiceException) Message() string {
	text := strings.Join(e.Texts, " | ")
	switch {
	case e.Code != "" && text != "":
		return "[" + e.Code + "] " + text
	case e.Code != "":
		return "[" + e.Code + "]"
	default:
		return text
	}
}

// IsExceptionRoot reports whether root is an exception report element.
func IsExceptionRoot(root *xmltree.Node) bool {
	return root.Is("ExceptionReport") || root.Is("ServiceExceptionReport")
}

// ParseException extracts the first exception code and all exception texts
// from an exception report. ok is false when root is no exception report.
func ParseException(root *xmltree.Node) (ServiceException, bool) {
	if !IsExceptionRoot(root) {
		return ServiceException{}, false
	}

	var exc ServiceException
	for _, e := range root.Elements() {
		if !e.Is("Exception") && !e.Is("ServiceException") {
			continue
		}
		if exc.Code == "" {
			exc.Code = firstNonEmpty(e.Attr("exceptionCode"), e.Attr("code"))
			exc.Locator = e.Attr("locator")
		}
		texts := e.Children("ExceptionText")
		if len(texts) == 0 {
			// 1.0 reports carry the message as element text
			if t := e.Text(); t != "" {
				exc.Texts = append(exc.Texts, t)
			}
			continue
		}
		for _, t := range texts {
			if s := t.Text(); s != "" {
				exc.Texts = append(exc.Texts, s)
			}
		}
	}
	return exc, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
