// Package classify assigns layers a feature category and services a
// country and region. It performs no I/O; the same input always yields the
// same answer.
package classify

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPolicy is returned for policies that cannot be used.
var ErrInvalidPolicy = errors.New("invalid classification policy")

// Category is a smart feature category. The empty Category means none.
type Category string

const (
	CategoryNone      Category = ""
	CategoryParcels   Category = "Flurstücke"
	CategoryBuildings Category = "Gebäudeumrisse"
	CategoryAddresses Category = "Adressen"
	CategoryStreets   Category = "Straßennetz"
	CategoryWater     Category = "Gewässernetz"
)

// UnknownRegion names the region when only the country is known.
const UnknownRegion = "Unbekannt"

// CategoryRule lists the keywords that select a category.
type CategoryRule struct {
	Category Category `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Envelope is an approximate lon/lat extent.
type Envelope struct {
	MinLon float64 `yaml:"min_lon"`
	MinLat float64 `yaml:"min_lat"`
	MaxLon float64 `yaml:"max_lon"`
	MaxLat float64 `yaml:"max_lat"`
}

// Contains reports whether the point lies within the envelope.
func (e Envelope) Contains(lon, lat float64) bool {
	return lon >= e.MinLon && lon <= e.MaxLon && lat >= e.MinLat && lat <= e.MaxLat
}

// RegionRule identifies a subdivision by name patterns (case-insensitive
// substrings) or codes (case-sensitive whole words such as "BB").
type RegionRule struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
	Codes    []string `yaml:"codes"`
}

// CountryRule describes one supported country.
type CountryRule struct {
	Code       string       `yaml:"code"`
	Name       string       `yaml:"name"`
	Indicators []string     `yaml:"indicators"`
	Domains    []string     `yaml:"domains"`
	Regions    []RegionRule `yaml:"regions"`
	Envelope   *Envelope    `yaml:"envelope"`
}

// Policy holds every table the classifier uses. Categories are evaluated in
// order and the first match wins. Countries are tried in order for text
// matches; BBoxOrder gives the order for envelope tests, smaller countries
// first since envelopes overlap.
type Policy struct {
	Categories     []CategoryRule `yaml:"categories"`
	Countries      []CountryRule  `yaml:"countries"`
	BBoxOrder      []string       `yaml:"bbox_order"`
	DefaultCountry string         `yaml:"default_country"`
	DefaultRegion  string         `yaml:"default_region"`
}

// DefaultPolicy returns the built-in tables. When nothing matches, the
// default is Germany with an unknown region, which reflects a catalog made
// up mostly of German services.
func DefaultPolicy() Policy {
	return Policy{
		Categories: []CategoryRule{
			{Category: CategoryParcels, Keywords: []string{"flurstück", "flurstueck", "flurstuck", "cadastral", "parcel", "grundstück", "grundstueck", "parzelle", "parcelle", "liegenschaft"}},
			{Category: CategoryBuildings, Keywords: []string{"gebäude", "gebaeude", "building", "bauwerk", "hausumring", "bâtiment", "batiment"}},
			{Category: CategoryAddresses, Keywords: []string{"adresse", "address", "hauskoordinate", "hausnummer", "anschrift"}},
			{Category: CategoryStreets, Keywords: []string{"straße", "strasse", "road", "street", "verkehrsnetz", "verkehrsweg"}},
			{Category: CategoryWater, Keywords: []string{"gewässer", "gewaesser", "water", "hydro", "fluss", "river", "cours d'eau"}},
		},
		Countries: []CountryRule{
			{
				Code:       "DE",
				Name:       "Deutschland",
				Indicators: []string{"deutschland", "germany", "bundesland", "bundesamt für kartographie", "bundesrepublik"},
				Domains:    []string{".de"},
				Regions: []RegionRule{
					{Name: "Baden-Württemberg", Patterns: []string{"baden-württemberg", "baden-wuerttemberg", "baden württemberg"}, Codes: []string{"BW"}},
					{Name: "Bayern", Patterns: []string{"bayern", "bavaria", "bayerisch"}, Codes: []string{"BY"}},
					{Name: "Berlin", Patterns: []string{"berlin"}, Codes: []string{"BE"}},
					{Name: "Brandenburg", Patterns: []string{"brandenburg"}, Codes: []string{"BB"}},
					{Name: "Bremen", Patterns: []string{"bremen"}, Codes: []string{"HB"}},
					{Name: "Hamburg", Patterns: []string{"hamburg"}, Codes: []string{"HH"}},
					{Name: "Hessen", Patterns: []string{"hessen", "hessisch"}, Codes: []string{"HE"}},
					{Name: "Mecklenburg-Vorpommern", Patterns: []string{"mecklenburg", "vorpommern"}, Codes: []string{"MV"}},
					{Name: "Niedersachsen", Patterns: []string{"niedersachsen", "niedersächsisch", "lower saxony"}, Codes: []string{"NI"}},
					{Name: "Nordrhein-Westfalen", Patterns: []string{"nordrhein-westfalen", "nordrhein westfalen", "nrw"}, Codes: []string{"NW"}},
					{Name: "Rheinland-Pfalz", Patterns: []string{"rheinland-pfalz", "rheinland pfalz", "rlp"}, Codes: []string{"RP"}},
					{Name: "Saarland", Patterns: []string{"saarland"}, Codes: []string{"SL"}},
					{Name: "Sachsen-Anhalt", Patterns: []string{"sachsen-anhalt", "sachsen anhalt"}, Codes: []string{"ST"}},
					{Name: "Sachsen", Patterns: []string{"sachsen", "sächsisch", "saxony"}, Codes: []string{"SN"}},
					{Name: "Schleswig-Holstein", Patterns: []string{"schleswig-holstein", "schleswig holstein"}, Codes: []string{"SH"}},
					{Name: "Thüringen", Patterns: []string{"thüringen", "thueringen", "thuringia"}, Codes: []string{"TH"}},
				},
				Envelope: &Envelope{MinLon: 5.87, MinLat: 47.27, MaxLon: 15.04, MaxLat: 55.06},
			},
			{
				Code:       "AT",
				Name:       "Österreich",
				Indicators: []string{"österreich", "oesterreich", "austria", "bundesamt für eich"},
				Domains:    []string{".at", ".gv.at"},
				Regions: []RegionRule{
					{Name: "Wien", Patterns: []string{"wien", "vienna"}},
					{Name: "Niederösterreich", Patterns: []string{"niederösterreich", "niederoesterreich"}},
					{Name: "Oberösterreich", Patterns: []string{"oberösterreich", "oberoesterreich"}},
					{Name: "Steiermark", Patterns: []string{"steiermark", "styria"}},
					{Name: "Tirol", Patterns: []string{"tirol", "tyrol"}},
					{Name: "Kärnten", Patterns: []string{"kärnten", "kaernten", "carinthia"}},
					{Name: "Salzburg", Patterns: []string{"salzburg"}},
					{Name: "Vorarlberg", Patterns: []string{"vorarlberg"}},
					{Name: "Burgenland", Patterns: []string{"burgenland"}},
				},
				Envelope: &Envelope{MinLon: 9.53, MinLat: 46.37, MaxLon: 17.16, MaxLat: 49.02},
			},
			{
				Code:       "CH",
				Name:       "Schweiz",
				Indicators: []string{"schweiz", "suisse", "svizzera", "switzerland", "swisstopo", "eidgenössisch"},
				Domains:    []string{".ch"},
				Regions: []RegionRule{
					{Name: "Zürich", Patterns: []string{"zürich", "zuerich", "zurich"}, Codes: []string{"ZH"}},
					{Name: "Bern", Patterns: []string{"kanton bern", "stadt bern", "canton de berne"}, Codes: []string{"BE"}},
					{Name: "Basel", Patterns: []string{"basel", "bâle"}, Codes: []string{"BS", "BL"}},
					{Name: "Genf", Patterns: []string{"genève", "geneve", "genf", "geneva"}},
					{Name: "Luzern", Patterns: []string{"luzern", "lucerne"}, Codes: []string{"LU"}},
					{Name: "St. Gallen", Patterns: []string{"st. gallen", "st.gallen", "sankt gallen"}, Codes: []string{"SG"}},
					{Name: "Waadt", Patterns: []string{"waadt", "vaud", "lausanne"}, Codes: []string{"VD"}},
					{Name: "Tessin", Patterns: []string{"tessin", "ticino"}, Codes: []string{"TI"}},
					{Name: "Aargau", Patterns: []string{"aargau"}},
					{Name: "Graubünden", Patterns: []string{"graubünden", "graubuenden", "grisons"}},
				},
				Envelope: &Envelope{MinLon: 5.96, MinLat: 45.82, MaxLon: 10.49, MaxLat: 47.81},
			},
			{
				Code:       "FR",
				Name:       "Frankreich",
				Indicators: []string{"france", "frankreich", "française", "francaise", "géoportail"},
				Domains:    []string{".fr", ".gouv.fr"},
				Regions: []RegionRule{
					{Name: "Île-de-France", Patterns: []string{"île-de-france", "ile-de-france", "paris"}},
					{Name: "Auvergne-Rhône-Alpes", Patterns: []string{"auvergne", "rhône-alpes", "rhone-alpes"}},
					{Name: "Provence-Alpes-Côte d'Azur", Patterns: []string{"provence", "côte d'azur", "cote d'azur"}},
					{Name: "Occitanie", Patterns: []string{"occitanie"}},
					{Name: "Nouvelle-Aquitaine", Patterns: []string{"nouvelle-aquitaine", "aquitaine"}},
					{Name: "Bretagne", Patterns: []string{"bretagne", "brittany"}},
					{Name: "Normandie", Patterns: []string{"normandie", "normandy"}},
					{Name: "Hauts-de-France", Patterns: []string{"hauts-de-france"}},
					{Name: "Grand Est", Patterns: []string{"grand est", "grand-est", "alsace", "elsass", "lorraine"}},
					{Name: "Pays de la Loire", Patterns: []string{"pays de la loire"}},
					{Name: "Centre-Val de Loire", Patterns: []string{"centre-val de loire"}},
					{Name: "Bourgogne-Franche-Comté", Patterns: []string{"bourgogne", "franche-comté", "franche-comte"}},
					{Name: "Corse", Patterns: []string{"corse", "korsika", "corsica"}},
				},
				Envelope: &Envelope{MinLon: -5.14, MinLat: 41.33, MaxLon: 9.56, MaxLat: 51.09},
			},
		},
		BBoxOrder:      []string{"CH", "AT", "DE", "FR"},
		DefaultCountry: "DE",
		DefaultRegion:  UnknownRegion,
	}
}

// LoadPolicy decodes a YAML policy. Sections missing from the document keep
// their defaults.
func LoadPolicy(r io.Reader) (Policy, error) {
	var loaded Policy
	if err := yaml.NewDecoder(r).Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	policy := loaded.withDefaults()
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if len(p.Categories) == 0 {
		p.Categories = def.Categories
	}
	switch {
	case len(p.Countries) == 0:
		p.Countries = def.Countries
		if len(p.BBoxOrder) == 0 {
			p.BBoxOrder = def.BBoxOrder
		}
	case len(p.BBoxOrder) == 0:
		p.BBoxOrder = make([]string, 0, len(p.Countries))
		for _, c := range p.Countries {
			p.BBoxOrder = append(p.BBoxOrder, c.Code)
		}
	}
	if p.DefaultCountry == "" {
		p.DefaultCountry = def.DefaultCountry
	}
	if p.DefaultRegion == "" {
		p.DefaultRegion = def.DefaultRegion
	}
	return p
}

// Validate checks that the policy is internally consistent.
func (p Policy) Validate() error {
	for i, rule := range p.Categories {
		if strings.TrimSpace(string(rule.Category)) == "" || len(rule.Keywords) == 0 {
			return fmt.Errorf("%w: category rule %d needs a category and keywords", ErrInvalidPolicy, i)
		}
	}
	codes := make(map[string]bool, len(p.Countries))
	for _, c := range p.Countries {
		if c.Code == "" || c.Name == "" {
			return fmt.Errorf("%w: country needs code and name", ErrInvalidPolicy)
		}
		codes[c.Code] = true
	}
	for _, code := range p.BBoxOrder {
		if !codes[code] {
			return fmt.Errorf("%w: bbox_order references unknown country %q", ErrInvalidPolicy, code)
		}
	}
	if !codes[p.DefaultCountry] {
		return fmt.Errorf("%w: default country %q is not configured", ErrInvalidPolicy, p.DefaultCountry)
	}
	return nil
}
