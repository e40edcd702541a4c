package capabilities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alkisBB = `<?xml version="1.0" encoding="UTF-8"?>
<wfs:WFS_Capabilities version="2.0.0"
    xmlns:wfs="http://www.opengis.net/wfs/2.0"
    xmlns:ows="http://www.opengis.net/ows/1.1"
    xmlns:xlink="http://www.w3.org/1999/xlink"
    xmlns:inspire_dls="http://inspire.ec.europa.eu/schemas/inspire_dls/1.0">
  <ows:ServiceIdentification>
    <ows:Title>INSPIRE-WFS Flurstücke/Grundstücke ALKIS BB</ows:Title>
    <ows:Abstract>Flurstücke des Landes Brandenburg nach INSPIRE Annex I</ows:Abstract>
    <ows:ServiceType>WFS</ows:ServiceType>
    <ows:ServiceTypeVersion>2.0.0</ows:ServiceTypeVersion>
    <ows:ServiceTypeVersion>1.1.0</ows:ServiceTypeVersion>
  </ows:ServiceIdentification>
  <ows:ServiceProvider>
    <ows:ProviderName>Landesvermessung und Geobasisinformation Brandenburg</ows:ProviderName>
    <ows:ProviderSite xlink:href="https://geobasis-bb.de"/>
  </ows:ServiceProvider>
  <ows:OperationsMetadata>
    <ows:Operation name="GetFeature">
      <ows:Parameter name="outputFormat">
        <ows:AllowedValues>
          <ows:Value>application/gml+xml; version=3.2</ows:Value>
          <ows:Value>text/xml; subtype=gml/3.2.1</ows:Value>
        </ows:AllowedValues>
      </ows:Parameter>
    </ows:Operation>
    <ows:ExtendedCapabilities>
      <inspire_dls:ExtendedCapabilities/>
    </ows:ExtendedCapabilities>
  </ows:OperationsMetadata>
  <wfs:FeatureTypeList>
    <wfs:FeatureType>
      <wfs:Name>cp:CadastralParcel</wfs:Name>
      <wfs:Title>Flurstücke</wfs:Title>
      <wfs:DefaultCRS>urn:ogc:def:crs:EPSG::25833</wfs:DefaultCRS>
      <wfs:OtherCRS>urn:ogc:def:crs:EPSG::4258</wfs:OtherCRS>
      <wfs:OtherCRS>urn:ogc:def:crs:EPSG::25833</wfs:OtherCRS>
      <ows:WGS84BoundingBox>
        <ows:LowerCorner>11.0 51.0</ows:LowerCorner>
        <ows:UpperCorner>15.0 53.5</ows:UpperCorner>
      </ows:WGS84BoundingBox>
    </wfs:FeatureType>
  </wfs:FeatureTypeList>
</wfs:WFS_Capabilities>`

func TestParse_EndToEndWFS20(t *testing.T) {
	res := NewParser(DefaultRules()).Parse([]byte(alkisBB))
	require.True(t, res.Success, res.Error)
	require.Equal(t, 1, res.LayerCount)
	require.Len(t, res.Layers, 1)

	svc := res.Service
	assert.Equal(t, "INSPIRE-WFS Flurstücke/Grundstücke ALKIS BB", svc.Title)
	assert.Equal(t, "Flurstücke des Landes Brandenburg nach INSPIRE Annex I", svc.Abstract)
	assert.Equal(t, "2.0.0", svc.Version)
	assert.Equal(t, []string{"2.0.0", "1.1.0"}, svc.Versions)
	require.NotNil(t, svc.ProviderName)
	assert.Equal(t, "Landesvermessung und Geobasisinformation Brandenburg", *svc.ProviderName)
	require.NotNil(t, svc.ProviderSite)
	assert.Equal(t, "https://geobasis-bb.de", *svc.ProviderSite)
	assert.Equal(t, []string{"application/gml+xml; version=3.2", "text/xml; subtype=gml/3.2.1"}, svc.OutputFormats)
	assert.Equal(t, []string{"EPSG:25833", "EPSG:4258"}, svc.CRS)
	assert.True(t, svc.Inspire)
	assert.Equal(t, []string{"cp"}, svc.InspireThemes)
	assert.Equal(t, &BBox{Lower: [2]float64{11.0, 51.0}, Upper: [2]float64{15.0, 53.5}, CRS: WGS84}, svc.BBox)

	layer := res.Layers[0]
	assert.Equal(t, "cp:CadastralParcel", layer.Name)
	require.NotNil(t, layer.Title)
	assert.Equal(t, "Flurstücke", *layer.Title)
	assert.Nil(t, layer.Abstract)
	assert.Equal(t, "EPSG:25833", layer.DefaultCRS)
	assert.Equal(t, []string{"EPSG:4258"}, layer.OtherCRS)
	assert.Equal(t, []string{"Flurstück"}, layer.Keywords)
	assert.Equal(t, []string{"cp"}, layer.InspireThemes)
	assert.Equal(t, GeometryPolygon, layer.GeometryType)
}

func TestParse_Idempotent(t *testing.T) {
	p := NewParser(DefaultRules())
	assert.Equal(t, p.Parse([]byte(alkisBB)), p.Parse([]byte(alkisBB)))
}

const (
	prefixedVariant = `<wfs:WFS_Capabilities version="1.1.0" xmlns:wfs="http://www.opengis.net/wfs" xmlns:ows="http://www.opengis.net/ows">
  <ows:ServiceIdentification><ows:Title>Gebäude Hessen</ows:Title><ows:Abstract>Hausumringe</ows:Abstract></ows:ServiceIdentification>
  <ows:ServiceProvider><ows:ProviderName>HVBG</ows:ProviderName></ows:ServiceProvider>
  <wfs:FeatureTypeList>
    <wfs:FeatureType><wfs:Name>ave:Gebaeude</wfs:Name></wfs:FeatureType>
    <wfs:FeatureType><wfs:Name>ave:Flurstueck</wfs:Name></wfs:FeatureType>
  </wfs:FeatureTypeList>
</wfs:WFS_Capabilities>`

	unprefixedVariant = `<WFS_Capabilities version="1.1.0" xmlns="http://www.opengis.net/wfs">
  <ServiceIdentification><Title>Gebäude Hessen</Title><Abstract>Hausumringe</Abstract></ServiceIdentification>
  <ServiceProvider><ProviderName>HVBG</ProviderName></ServiceProvider>
  <FeatureTypeList>
    <FeatureType><Name>ave:Gebaeude</Name></FeatureType>
    <FeatureType><Name>ave:Flurstueck</Name></FeatureType>
  </FeatureTypeList>
</WFS_Capabilities>`

	mixedVariant = `<x:WFS_Capabilities version="1.1.0" xmlns:x="http://www.opengis.net/wfs" xmlns="http://www.opengis.net/ows">
  <ServiceIdentification><Title>Gebäude Hessen</Title><wfs:Abstract xmlns:wfs="http://www.opengis.net/wfs">Hausumringe</wfs:Abstract></ServiceIdentification>
  <ServiceProvider><o:ProviderName xmlns:o="http://www.opengis.net/ows">HVBG</o:ProviderName></ServiceProvider>
  <x:FeatureTypeList>
    <x:FeatureType><x:Name>ave:Gebaeude</x:Name></x:FeatureType>
    <FeatureType><Name>ave:Flurstueck</Name></FeatureType>
  </x:FeatureTypeList>
</x:WFS_Capabilities>`
)

func TestParse_NamespaceInvariance(t *testing.T) {
	p := NewParser(DefaultRules())
	variants := map[string]string{
		"Prefixed":   prefixedVariant,
		"Unprefixed": unprefixedVariant,
		"Mixed":      mixedVariant,
	}

	for name, doc := range variants {
		t.Run(name, func(t *testing.T) {
			res := p.Parse([]byte(doc))
			require.True(t, res.Success, res.Error)
			assert.Equal(t, "Gebäude Hessen", res.Service.Title)
			assert.Equal(t, "Hausumringe", res.Service.Abstract)
			assert.Equal(t, "1.1.0", res.Service.Version)
			require.NotNil(t, res.Service.ProviderName)
			assert.Equal(t, "HVBG", *res.Service.ProviderName)
			require.Equal(t, 2, res.LayerCount)
			assert.Equal(t, "ave:Gebaeude", res.Layers[0].Name)
			assert.Equal(t, "ave:Flurstueck", res.Layers[1].Name)
		})
	}
}

func TestParse_WFS10(t *testing.T) {
	doc := `<?xml version="1.0" encoding="ISO-8859-1"?>
<WFS_Capabilities version="1.0.0" xmlns="http://www.opengis.net/wfs">
  <Service>
    <Name>WFS</Name>
    <Title>Gew` + "\xe4" + `ssernetz Sachsen</Title>
    <OnlineResource>https://geodienste.sachsen.de/wfs</OnlineResource>
  </Service>
  <Capability><Request><GetFeature><ResultFormat><GML2/><GML3/></ResultFormat></GetFeature></Request></Capability>
  <FeatureTypeList>
    <FeatureType>
      <Name>gewaesser_linien</Name>
      <Title>Fliessgewaesser</Title>
      <Keywords>Hydrographie, Fluss, Hydrographie</Keywords>
      <SRS>EPSG:25833</SRS>
      <LatLongBoundingBox minx="13.0" miny="52.3" maxx="13.8" maxy="52.7"/>
    </FeatureType>
  </FeatureTypeList>
</WFS_Capabilities>`

	res := NewParser(DefaultRules()).Parse([]byte(doc))
	require.True(t, res.Success, res.Error)

	svc := res.Service
	assert.Equal(t, "Gewässernetz Sachsen", svc.Title)
	assert.Equal(t, NoAbstract, svc.Abstract)
	assert.Equal(t, "1.0.0", svc.Version)
	assert.Nil(t, svc.ProviderName)
	require.NotNil(t, svc.ProviderSite)
	assert.Equal(t, "https://geodienste.sachsen.de/wfs", *svc.ProviderSite)
	assert.Equal(t, []string{"GML2", "GML3"}, svc.OutputFormats)
	assert.False(t, svc.Inspire)

	layer := res.Layers[0]
	assert.Equal(t, "EPSG:25833", layer.DefaultCRS)
	assert.Empty(t, layer.OtherCRS)
	assert.Equal(t, []string{"Hydrographie", "Fluss"}, layer.Keywords)
	assert.Equal(t, &BBox{Lower: [2]float64{13.0, 52.3}, Upper: [2]float64{13.8, 52.7}, CRS: WGS84}, layer.BBox)
	assert.Equal(t, GeometryLine, layer.GeometryType)
}

func TestParse_DropsNamelessFeatureTypes(t *testing.T) {
	doc := `<WFS_Capabilities version="2.0.0"><FeatureTypeList>
  <FeatureType><Title>no name</Title></FeatureType>
  <FeatureType><Name>  </Name></FeatureType>
  <FeatureType><Name>ok</Name></FeatureType>
  <FeatureType name="attr:named"/>
</FeatureTypeList></WFS_Capabilities>`

	res := NewParser(DefaultRules()).Parse([]byte(doc))
	require.True(t, res.Success)
	assert.Equal(t, 2, res.LayerCount)
	assert.Len(t, res.Layers, res.LayerCount)
	for _, l := range res.Layers {
		assert.NotEmpty(t, l.Name)
	}
}

func TestParse_RepeatedNameKeepsFirst(t *testing.T) {
	doc := `<wfs:WFS_Capabilities xmlns:wfs="http://www.opengis.net/wfs/2.0" version="2.0.0"><wfs:FeatureTypeList>
  <wfs:FeatureType><wfs:Name>cp:CadastralParcel</wfs:Name><wfs:Title>Flurstücke</wfs:Title></wfs:FeatureType>
  <wfs:FeatureType><wfs:Name>bu:Building</wfs:Name></wfs:FeatureType>
  <wfs:FeatureType><wfs:Name>cp:CadastralParcel</wfs:Name><wfs:Title>Flurstücke (Kopie)</wfs:Title></wfs:FeatureType>
</wfs:FeatureTypeList></wfs:WFS_Capabilities>`

	res := NewParser(DefaultRules()).Parse([]byte(doc))
	require.True(t, res.Success)
	assert.Equal(t, 2, res.LayerCount)
	require.Len(t, res.Layers, 2)
	assert.Equal(t, "cp:CadastralParcel", res.Layers[0].Name)
	require.NotNil(t, res.Layers[0].Title)
	assert.Equal(t, "Flurstücke", *res.Layers[0].Title)
	assert.Equal(t, "bu:Building", res.Layers[1].Name)
}

func TestParse_ZeroLayersIsSuccess(t *testing.T) {
	res := NewParser(DefaultRules()).Parse([]byte(`<wfs:WFS_Capabilities xmlns:wfs="http://www.opengis.net/wfs/2.0"/>`))
	require.True(t, res.Success)
	assert.Equal(t, 0, res.LayerCount)
	assert.Equal(t, UnknownTitle, res.Service.Title)
	assert.Equal(t, NoAbstract, res.Service.Abstract)
	assert.Equal(t, FallbackVersion, res.Service.Version)
	assert.Nil(t, res.Service.BBox)
	assert.NotNil(t, res.Service.InspireThemes)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "WrongRoot", input: "<invalid>xml</invalid>"},
		{name: "NotXML", input: "Service Unavailable"},
		{name: "Empty", input: ""},
		{name: "ExceptionReport", input: `<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/1.1"><ows:Exception exceptionCode="NoApplicableCode"/></ows:ExceptionReport>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewParser(DefaultRules()).Parse([]byte(tt.input))
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
			assert.Nil(t, res.Service)
			assert.Zero(t, res.LayerCount)
		})
	}
}

func TestParse_TruncatedDocumentKeepsCompleteLayers(t *testing.T) {
	cut := alkisBB[:strings.Index(alkisBB, "</wfs:FeatureTypeList>")]
	res := NewParser(DefaultRules()).Parse([]byte(cut))
	require.True(t, res.Success, res.Error)
	assert.True(t, res.Truncated)
	require.Equal(t, 1, res.LayerCount)
	assert.Equal(t, "cp:CadastralParcel", res.Layers[0].Name)
}
