package capabilities

import (
	"strconv"
	"strings"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// ExtractBBox reads the WGS84 extent declared directly under scope (a
// FeatureType element). WFS 2.0/1.1 WGS84BoundingBox corners are tried
// before the WFS 1.0 LatLongBoundingBox attributes. It returns nil rather
// than guessing when neither parses.
func ExtractBBox(scope *xmltree.Node) *BBox {
	for _, el := range scope.Children("WGS84BoundingBox") {
		lower, okL := parsePair(el.First("LowerCorner").Text())
		upper, okU := parsePair(el.First("UpperCorner").Text())
		if okL && okU {
			return &BBox{Lower: lower, Upper: upper, CRS: WGS84}
		}
	}
	for _, el := range scope.Children("LatLongBoundingBox") {
		vals, ok := parseFloats(el.Attr("minx"), el.Attr("miny"), el.Attr("maxx"), el.Attr("maxy"))
		if ok {
			return &BBox{
				Lower: [2]float64{vals[0], vals[1]},
				Upper: [2]float64{vals[2], vals[3]},
				CRS:   WGS84,
			}
		}
	}
	return nil
}

func parsePair(s string) ([2]float64, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return [2]float64{}, false
	}
	vals, ok := parseFloats(fields[0], fields[1])
	if !ok {
		return [2]float64{}, false
	}
	return [2]float64{vals[0], vals[1]}, true
}

func parseFloats(raw ...string) ([]float64, bool) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		// some servers write decimal commas
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// unionBBox merges all non-nil boxes, or returns nil when there are none.
func unionBBox(boxes []*BBox) *BBox {
	var out *BBox
	for _, b := range boxes {
		if b == nil {
			continue
		}
		if out == nil {
			cp := *b
			out = &cp
			continue
		}
		u := out.Union(*b)
		out = &u
	}
	return out
}
