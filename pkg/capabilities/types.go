// Package capabilities extracts service and layer metadata from WFS
// GetCapabilities documents of any protocol version.
//
// Every field is read through an ordered list of extraction strategies; the
// first strategy that yields a value wins. Missing fields resolve to a
// documented placeholder or nil and never fail the parse.
package capabilities

// Placeholders for service fields that must never be empty.
const (
	UnknownTitle    = "Unbekannter WFS-Service"
	NoAbstract      = "Keine Beschreibung verfügbar"
	FallbackVersion = "1.1.0"
	WGS84           = "EPSG:4326"
)

// BBox is a WGS84 extent; corners are [longitude, latitude].
type BBox struct {
	Lower [2]float64 `json:"lower"`
	Upper [2]float64 `json:"upper"`
	CRS   string     `json:"crs"`
}

// Union returns the envelope covering b and other.
func (b BBox) Union(other BBox) BBox {
	return BBox{
		Lower: [2]float64{min(b.Lower[0], other.Lower[0]), min(b.Lower[1], other.Lower[1])},
		Upper: [2]float64{max(b.Upper[0], other.Upper[0]), max(b.Upper[1], other.Upper[1])},
		CRS:   b.CRS,
	}
}

// Center returns the midpoint as [longitude, latitude].
func (b BBox) Center() [2]float64 {
	return [2]float64{(b.Lower[0] + b.Upper[0]) / 2, (b.Lower[1] + b.Upper[1]) / 2}
}

// GeometryType is the inferred geometry of a layer.
type GeometryType string

const (
	GeometryUnknown GeometryType = ""
	GeometryPoint   GeometryType = "point"
	GeometryLine    GeometryType = "line"
	GeometryPolygon GeometryType = "polygon"
)

// ServiceMetadata describes one WFS endpoint.
type ServiceMetadata struct {
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Version       string   `json:"version"`
	Versions      []string `json:"versions"`
	ProviderName  *string  `json:"provider_name"`
	ProviderSite  *string  `json:"provider_site"`
	CRS           []string `json:"crs"`
	OutputFormats []string `json:"output_formats"`
	BBox          *BBox    `json:"bbox_wgs84"`
	InspireThemes []string `json:"inspire_themes"`
	Inspire       bool     `json:"inspire"`
}

// Layer describes one FeatureType. Name is never empty.
type Layer struct {
	Name          string       `json:"name"`
	Title         *string      `json:"title"`
	Abstract      *string      `json:"abstract"`
	DefaultCRS    string       `json:"default_crs"`
	OtherCRS      []string     `json:"other_crs"`
	OutputFormats []string     `json:"output_formats"`
	BBox          *BBox        `json:"bbox_wgs84"`
	Keywords      []string     `json:"keywords"`
	InspireThemes []string     `json:"inspire_themes"`
	GeometryType  GeometryType `json:"geometry_type"`
}

// DisplayTitle returns the title, or the technical name when there is none.
func (l Layer) DisplayTitle() string {
	if l.Title != nil && *l.Title != "" {
		return *l.Title
	}
	return l.Name
}

// Result is the outcome of Parse. Success is false only when the input is
// not a capabilities document at all; LayerCount always equals len(Layers).
type Result struct {
	Success    bool             `json:"success"`
	Service    *ServiceMetadata `json:"service,omitempty"`
	Layers     []Layer          `json:"layers,omitempty"`
	LayerCount int              `json:"layer_count"`
	Truncated  bool             `json:"truncated,omitempty"`
	Error      string           `json:"error,omitempty"`
}
