package capabilities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

func mustRoot(t *testing.T, doc string) *xmltree.Node {
	t.Helper()
	parsed, err := xmltree.Parse([]byte(doc))
	require.NoError(t, err)
	return parsed.Root()
}

func TestExtractBBox(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want *BBox
	}{
		{
			name: "WGS84BoundingBox",
			doc:  `<FeatureType><ows:WGS84BoundingBox xmlns:ows="o"><ows:LowerCorner>11.0 51.0</ows:LowerCorner><ows:UpperCorner>15.0 53.5</ows:UpperCorner></ows:WGS84BoundingBox></FeatureType>`,
			want: &BBox{Lower: [2]float64{11.0, 51.0}, Upper: [2]float64{15.0, 53.5}, CRS: "EPSG:4326"},
		},
		{
			name: "LatLongBoundingBox",
			doc:  `<FeatureType><LatLongBoundingBox minx="13.0" miny="52.3" maxx="13.8" maxy="52.7"/></FeatureType>`,
			want: &BBox{Lower: [2]float64{13.0, 52.3}, Upper: [2]float64{13.8, 52.7}, CRS: "EPSG:4326"},
		},
		{
			name: "DecimalComma",
			doc:  `<FeatureType><LatLongBoundingBox minx="9,5" miny="47" maxx="10" maxy="48"/></FeatureType>`,
			want: &BBox{Lower: [2]float64{9.5, 47}, Upper: [2]float64{10, 48}, CRS: "EPSG:4326"},
		},
		{
			name: "BrokenCornerFallsBackToLatLong",
			doc:  `<FeatureType><WGS84BoundingBox><LowerCorner>11.0</LowerCorner><UpperCorner>15 53</UpperCorner></WGS84BoundingBox><LatLongBoundingBox minx="1" miny="2" maxx="3" maxy="4"/></FeatureType>`,
			want: &BBox{Lower: [2]float64{1, 2}, Upper: [2]float64{3, 4}, CRS: "EPSG:4326"},
		},
		{
			name: "Missing",
			doc:  `<FeatureType><Name>x</Name></FeatureType>`,
			want: nil,
		},
		{
			name: "NotNumeric",
			doc:  `<FeatureType><LatLongBoundingBox minx="a" miny="2" maxx="3" maxy="4"/></FeatureType>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractBBox(mustRoot(t, tt.doc)))
		})
	}
}

func TestUnionBBox(t *testing.T) {
	got := unionBBox([]*BBox{
		nil,
		{Lower: [2]float64{11, 51}, Upper: [2]float64{12, 52}, CRS: WGS84},
		{Lower: [2]float64{10, 52}, Upper: [2]float64{15, 53.5}, CRS: WGS84},
	})
	assert.Equal(t, &BBox{Lower: [2]float64{10, 51}, Upper: [2]float64{15, 53.5}, CRS: WGS84}, got)
	assert.Nil(t, unionBBox(nil))
	assert.Equal(t, [2]float64{12.5, 52.25}, got.Center())
}

func TestExtractServiceTitle_Cascade(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "OwsBeatsUnprefixed",
			doc:  `<r><ServiceIdentification><Title>plain</Title><ows:Title xmlns:ows="o">ows</ows:Title></ServiceIdentification></r>`,
			want: "ows",
		},
		{
			name: "WFSPrefixed",
			doc:  `<r><wfs:Service xmlns:wfs="w"><wfs:Title>wfs title</wfs:Title></wfs:Service></r>`,
			want: "wfs title",
		},
		{
			name: "Nested",
			doc:  `<r><ServiceIdentification><Info><Title>deep</Title></Info></ServiceIdentification></r>`,
			want: "deep",
		},
		{
			name: "ServiceName",
			doc:  `<r><Meta><ServiceName>by name</ServiceName></Meta></r>`,
			want: "by name",
		},
		{
			name: "EmptyTitleSkipped",
			doc:  `<r><ServiceIdentification><Title> </Title></ServiceIdentification><Service><Name>WFS</Name></Service></r>`,
			want: "WFS",
		},
		{
			name: "Placeholder",
			doc:  `<r/>`,
			want: UnknownTitle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractServiceTitle(mustRoot(t, tt.doc)))
		})
	}
}

func TestExtractVersion(t *testing.T) {
	tests := map[string]string{
		`<r version="1.0.0"><ServiceTypeVersion>2.0.0</ServiceTypeVersion></r>`: "1.0.0",
		`<r><ServiceIdentification><ServiceTypeVersion>2.0.0</ServiceTypeVersion></ServiceIdentification></r>`: "2.0.0",
		`<r><FeatureType><DefaultCRS>EPSG:4326</DefaultCRS></FeatureType></r>`:                               "2.0.0",
		`<r><FeatureType><SRS>EPSG:4326</SRS></FeatureType></r>`:                                             "1.1.0",
		`<r/>`: FallbackVersion,
	}
	for doc, want := range tests {
		assert.Equal(t, want, ExtractVersion(mustRoot(t, doc)), doc)
	}
}

func TestExtractProvider(t *testing.T) {
	root := mustRoot(t, `<r>
  <ContactInformation><ContactPersonPrimary><ContactOrganization>Stadt Wien</ContactOrganization></ContactPersonPrimary></ContactInformation>
  <ServiceProvider><ProviderSite>https://text.example</ProviderSite></ServiceProvider>
</r>`)
	name := ExtractProviderName(root)
	require.NotNil(t, name)
	assert.Equal(t, "Stadt Wien", *name)
	site := ExtractProviderSite(root)
	require.NotNil(t, site)
	assert.Equal(t, "https://text.example", *site)

	empty := mustRoot(t, `<r/>`)
	assert.Nil(t, ExtractProviderName(empty))
	assert.Nil(t, ExtractProviderSite(empty))
}

func TestExtractInspireThemes(t *testing.T) {
	p := NewParser(DefaultRules())
	assert.Equal(t, []string{"bu", "ad"}, p.ExtractInspireThemes("Hauskoordinaten und Gebäude"))
	assert.Equal(t, []string{"hy"}, p.ExtractInspireThemes("see http://inspire.ec.europa.eu/theme/hy"))
	got := p.ExtractInspireThemes("Wetterdaten")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLayerThemes_SchemaPrefix(t *testing.T) {
	p := NewParser(DefaultRules())
	assert.Equal(t, []string{"tn"}, p.layerThemes("tn-ro:RoadLink", "", "", nil))
	assert.Equal(t, []string{"bu", "ad"}, p.layerThemes("ad:Address", "Gebäude", "", nil))
	assert.Empty(t, p.layerThemes("xx:Thing", "", "", nil))
}

func TestSynthesizeKeywords_Deduplicated(t *testing.T) {
	p := NewParser(DefaultRules())
	got := p.synthesizeKeywords("flurstueck_parcel", "Flurstücke und Parzellen", "cadastral parcels, Straßen")
	assert.Equal(t, []string{"Flurstück", "Straße"}, got)
}

func TestInferGeometry(t *testing.T) {
	p := NewParser(DefaultRules())
	tests := map[[2]string]GeometryType{
		{"ad:Address", ""}:                     GeometryPoint,
		{"strassennetz", "Straßenachsen"}:      GeometryLine,
		{"ALKIS_Gebaeude", "Gebäudeumrisse"}:   GeometryPolygon,
		{"wetter", "Temperatur"}:               GeometryUnknown,
		{"alkis_online", "Flurstücke Online"}:  GeometryPolygon,
		{"pipeline", "Pipeline"}:               GeometryUnknown,
		{"gn:LineString", ""}:                  GeometryLine,
		{"hoehenlinien", "Höhenlinien"}:        GeometryLine,
	}
	for in, want := range tests {
		assert.Equal(t, want, p.inferGeometry(in[0], in[1]), in[0])
	}
}

func TestLoadRules(t *testing.T) {
	rules, err := LoadRules(strings.NewReader(`
keywords:
  - label: Baum
    patterns: [baum, tree]
`))
	require.NoError(t, err)
	require.Len(t, rules.Keywords, 1)
	assert.Equal(t, "Baum", rules.Keywords[0].Label)
	assert.Equal(t, DefaultRules().InspireThemes, rules.InspireThemes)

	p := NewParser(rules)
	assert.Equal(t, []string{"Baum"}, p.synthesizeKeywords("baeume", "Baumkataster", ""))

	_, err = LoadRules(strings.NewReader("keywords:\n  - label: \"\"\n    patterns: [x]\n"))
	assert.ErrorIs(t, err, ErrInvalidRules)

	_, err = LoadRules(strings.NewReader("keywords: {"))
	assert.ErrorIs(t, err, ErrInvalidRules)

	rules, err = LoadRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}
