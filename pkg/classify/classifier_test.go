package classify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/wfs-catalog/pkg/capabilities"
)

func TestCategory(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	tests := []struct {
		name, layer, title, abstract string
		want                         Category
	}{
		{name: "ParcelsByNameAndTitle", layer: "ALKIS_Flurstueck", title: "Flurstücke Berlin", want: CategoryParcels},
		{name: "ParcelsInspire", layer: "cp:CadastralParcel", want: CategoryParcels},
		{name: "Buildings", layer: "ave:Gebaeude", title: "Gebäude", want: CategoryBuildings},
		{name: "Addresses", layer: "ad:Address", want: CategoryAddresses},
		{name: "Streets", layer: "strassen", title: "Straßenabschnitte", want: CategoryStreets},
		{name: "Water", layer: "hy-p:Watercourse", want: CategoryWater},
		{name: "PriorityParcelsBeforeBuildings", layer: "gebaeude_auf_flurstueck", want: CategoryParcels},
		{name: "PriorityAddressesBeforeStreets", layer: "adressen", title: "Adressen nach Straße", want: CategoryAddresses},
		{name: "CaseInsensitive", layer: "X", title: "GEBÄUDEUMRISSE", want: CategoryBuildings},
		{name: "AbstractOnly", layer: "layer_1", abstract: "Enthält alle Gewässer 2. Ordnung", want: CategoryWater},
		{name: "NoKeyword", layer: "wetterstationen", title: "Temperatur", want: CategoryNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Category(tt.layer, tt.title, tt.abstract))
		})
	}
}

func TestCategory_Deterministic(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	for i := 0; i < 20; i++ {
		assert.Equal(t, CategoryParcels, c.Category("ALKIS_Flurstueck", "Flurstücke Berlin", ""))
	}
}

func TestRegion(t *testing.T) {
	c := NewClassifier(DefaultPolicy())

	tests := []struct {
		name string
		in   RegionInput
		want Region
	}{
		{
			name: "RegionCodeInTitle",
			in:   RegionInput{Title: "INSPIRE-WFS Flurstücke/Grundstücke ALKIS BB"},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: "Brandenburg", Method: MethodText},
		},
		{
			name: "RegionNameInProvider",
			in:   RegionInput{Title: "Hausumringe", Provider: "Landesamt für Geoinformation Sachsen-Anhalt"},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: "Sachsen-Anhalt", Method: MethodText},
		},
		{
			name: "NiedersachsenNotSachsen",
			in:   RegionInput{Abstract: "Daten der Vermessungs- und Katasterverwaltung Niedersachsen"},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: "Niedersachsen", Method: MethodText},
		},
		{
			name: "AustrianLand",
			in:   RegionInput{Title: "Gebäude Steiermark"},
			want: Region{CountryCode: "AT", CountryName: "Österreich", Region: "Steiermark", Method: MethodText},
		},
		{
			name: "SwissCanton",
			in:   RegionInput{Title: "Amtliche Vermessung Kanton Zürich"},
			want: Region{CountryCode: "CH", CountryName: "Schweiz", Region: "Zürich", Method: MethodText},
		},
		{
			name: "FrenchRegion",
			in:   RegionInput{Title: "Parcelles cadastrales Bretagne"},
			want: Region{CountryCode: "FR", CountryName: "Frankreich", Region: "Bretagne", Method: MethodText},
		},
		{
			name: "CountryIndicatorOnly",
			in:   RegionInput{Abstract: "Geodaten aus der Schweiz"},
			want: Region{CountryCode: "CH", CountryName: "Schweiz", Region: UnknownRegion, Method: MethodText},
		},
		{
			name: "RegionFromHost",
			in:   RegionInput{Title: "Flurstücke", URL: "https://geodienste.sachsen.de/wfs_alkis"},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: "Sachsen", Method: MethodText},
		},
		{
			name: "CodeScopedToIndicatedCountry",
			in: RegionInput{
				Title:    "Amtliche Vermessung Kanton BE",
				Abstract: "Geodaten der Schweiz",
				URL:      "https://geodienste.ch/wfs",
			},
			want: Region{CountryCode: "CH", CountryName: "Schweiz", Region: "Bern", Method: MethodText},
		},
		{
			name: "CodeScopedToDomainCountry",
			in:   RegionInput{Title: "Gebäude Kanton BE", URL: "https://geodienste.ch/wfs"},
			want: Region{CountryCode: "CH", CountryName: "Schweiz", Region: "Bern", Method: MethodText},
		},
		{
			name: "IndicatorWithoutRegion",
			in:   RegionInput{Title: "Flurstücke SH", Abstract: "Daten aus Österreich"},
			want: Region{CountryCode: "AT", CountryName: "Österreich", Region: UnknownRegion, Method: MethodText},
		},
		{
			name: "CodeWithoutCountryEvidence",
			in:   RegionInput{Title: "ALKIS BE", URL: "https://example.com/wfs"},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: "Berlin", Method: MethodText},
		},
		{
			name: "CountryFromDomain",
			in:   RegionInput{Title: "Flurstücke", URL: "https://data.example.gv.at/wfs"},
			want: Region{CountryCode: "AT", CountryName: "Österreich", Region: UnknownRegion, Method: MethodDomain},
		},
		{
			name: "BBoxInSwitzerland",
			in: RegionInput{Title: "Layer", BBox: &capabilities.BBox{
				Lower: [2]float64{8.4, 47.3}, Upper: [2]float64{8.6, 47.5}, CRS: capabilities.WGS84,
			}},
			want: Region{CountryCode: "CH", CountryName: "Schweiz", Region: UnknownRegion, Method: MethodBBox},
		},
		{
			name: "BBoxInGermany",
			in: RegionInput{Title: "Layer", BBox: &capabilities.BBox{
				Lower: [2]float64{11.0, 51.0}, Upper: [2]float64{15.0, 53.5}, CRS: capabilities.WGS84,
			}},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: UnknownRegion, Method: MethodBBox},
		},
		{
			name: "BBoxInFrance",
			in: RegionInput{Title: "Layer", BBox: &capabilities.BBox{
				Lower: [2]float64{2.2, 48.8}, Upper: [2]float64{2.4, 48.9}, CRS: capabilities.WGS84,
			}},
			want: Region{CountryCode: "FR", CountryName: "Frankreich", Region: UnknownRegion, Method: MethodBBox},
		},
		{
			name: "DefaultGermany",
			in: RegionInput{Title: "Layer", BBox: &capabilities.BBox{
				Lower: [2]float64{-74.1, 40.6}, Upper: [2]float64{-73.9, 40.8}, CRS: capabilities.WGS84,
			}},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: UnknownRegion, Method: MethodDefault},
		},
		{
			name: "LowercaseCodeIgnored",
			in:   RegionInput{Title: "bb data"},
			want: Region{CountryCode: "DE", CountryName: "Deutschland", Region: UnknownRegion, Method: MethodDefault},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Region(tt.in))
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	policy, err := LoadPolicy(strings.NewReader(`
default_country: AT
default_region: unbekannt
categories:
  - category: Bäume
    keywords: [baum, tree]
`))
	require.NoError(t, err)
	assert.Equal(t, "AT", policy.DefaultCountry)
	assert.Equal(t, DefaultPolicy().Countries, policy.Countries)

	c := NewClassifier(policy)
	assert.Equal(t, Category("Bäume"), c.Category("baumkataster", "", ""))
	assert.Equal(t, CategoryNone, c.Category("Flurstücke", "", ""))
	assert.Equal(t, Region{CountryCode: "AT", CountryName: "Österreich", Region: "unbekannt", Method: MethodDefault}, c.Region(RegionInput{}))
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := map[string]string{
		"Syntax":          "categories: [",
		"UnknownDefault":  "default_country: XX\n",
		"EmptyKeywords":   "categories:\n  - category: A\n",
		"UnknownBBoxCode": "bbox_order: [DE, IT]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPolicy(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidPolicy)
		})
	}
}

func TestLoadPolicy_Empty(t *testing.T) {
	policy, err := LoadPolicy(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)
}
