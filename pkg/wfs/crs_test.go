package wfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCRS(t *testing.T) {
	tests := map[string]string{
		"EPSG:25833":                                    "EPSG:25833",
		"epsg:4326":                                     "EPSG:4326",
		"urn:ogc:def:crs:EPSG::25832":                   "EPSG:25832",
		"urn:ogc:def:crs:EPSG:6.9:31467":                "EPSG:31467",
		"urn:x-ogc:def:crs:EPSG:4258":                   "EPSG:4258",
		"http://www.opengis.net/def/crs/EPSG/0/3035":    "EPSG:3035",
		"http://www.opengis.net/gml/srs/epsg.xml#4326":  "EPSG:4326",
		"  EPSG:2056 ":                                  "EPSG:2056",
		"urn:ogc:def:crs:OGC:1.3:CRS84":                 "urn:ogc:def:crs:OGC:1.3:CRS84",
		"":                                              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCRS(in), in)
	}
}
