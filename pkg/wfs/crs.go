package wfs

import (
	"regexp"
	"strings"
)

var epsgCode = regexp.MustCompile(`(?i)epsg(?:\.xml#|/0/|:[0-9.]*:|::|:|/)([0-9]+)\s*$`)

// NormalizeCRS rewrites the many spellings of an EPSG code
// (urn:ogc:def:crs:EPSG::25833, http://www.opengis.net/def/crs/EPSG/0/25833,
// http://www.opengis.net/gml/srs/epsg.xml#25833) to EPSG:25833. Other
// identifiers are returned trimmed but otherwise unchanged.
func NormalizeCRS(raw string) string {
	s := strings.TrimSpace(raw)
	if m := epsgCode.FindStringSubmatch(s); m != nil {
		return "EPSG:" + m[1]
	}
	return s
}
