package capabilities

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is returned by LoadRules for unusable rule files.
var ErrInvalidRules = errors.New("invalid extraction rules")

// TermRule maps a label to the lower-case substrings that indicate it.
type TermRule struct {
	Label    string   `yaml:"label"`
	Patterns []string `yaml:"patterns"`
}

// GeometryRules lists the name/title patterns per geometry type. Point is
// checked first, then line, then polygon.
type GeometryRules struct {
	Point   []string `yaml:"point"`
	Line    []string `yaml:"line"`
	Polygon []string `yaml:"polygon"`
}

// Rules holds the replaceable lookup tables used during extraction.
type Rules struct {
	// Keywords synthesises layer keywords when none are declared.
	Keywords []TermRule `yaml:"keywords"`
	// InspireThemes maps INSPIRE theme codes (Label) to text patterns.
	InspireThemes []TermRule    `yaml:"inspire_themes"`
	Geometry      GeometryRules `yaml:"geometry"`
}

// DefaultRules returns the built-in tables. They are tuned for German
// cadastral and topographic services.
func DefaultRules() Rules {
	return Rules{
		Keywords: []TermRule{
			{Label: "Flurstück", Patterns: []string{"flur", "cadastral", "parcel", "kataster", "grundstück", "grundstueck"}},
			{Label: "Gebäude", Patterns: []string{"gebäude", "gebaeude", "building", "bauwerk", "hausumring"}},
			{Label: "Adresse", Patterns: []string{"adresse", "address", "hauskoordinate", "hausnummer"}},
			{Label: "Straße", Patterns: []string{"straße", "strasse", "street", "road", "verkehr"}},
			{Label: "Wasser", Patterns: []string{"wasser", "gewässer", "gewaesser", "water", "hydro", "fluss", "river"}},
			{Label: "Verwaltung", Patterns: []string{"verwaltung", "administrative", "gemeindegrenze", "landkreis"}},
			{Label: "Schutzgebiet", Patterns: []string{"schutzgebiet", "naturschutz", "protected", "natura2000", "natura 2000"}},
			{Label: "Nutzung", Patterns: []string{"nutzung", "land use", "landuse", "bebauungsplan"}},
		},
		InspireThemes: []TermRule{
			{Label: "cp", Patterns: []string{"cadastral", "flurstück", "flurstueck", "grundstück", "grundstueck", "parcel"}},
			{Label: "bu", Patterns: []string{"gebäude", "gebaeude", "building", "bauwerk"}},
			{Label: "ad", Patterns: []string{"adresse", "address", "hauskoordinate"}},
			{Label: "tn", Patterns: []string{"verkehrsnetz", "transport", "straßennetz", "strassennetz", "road"}},
			{Label: "hy", Patterns: []string{"gewässer", "gewaesser", "hydrograph", "hydro"}},
			{Label: "au", Patterns: []string{"verwaltungseinheit", "verwaltungsgrenze", "administrative unit", "administrative boundar"}},
			{Label: "ps", Patterns: []string{"schutzgebiet", "protected site", "naturschutz"}},
			{Label: "lu", Patterns: []string{"bodennutzung", "flächennutzung", "landnutzung", "land use", "bebauungsplan"}},
			{Label: "lc", Patterns: []string{"bodenbedeckung", "land cover"}},
			{Label: "gn", Patterns: []string{"geographical name", "geografische namen", "geographische namen", "ortsnamen"}},
			{Label: "el", Patterns: []string{"höhenmodell", "hoehenmodell", "elevation", "geländemodell"}},
			{Label: "oi", Patterns: []string{"orthophoto", "orthoimagery", "orthobild", "luftbild"}},
			{Label: "ge", Patterns: []string{"geologie", "geology", "geologisch"}},
			{Label: "so", Patterns: []string{"bodenkarte", "soil"}},
			{Label: "us", Patterns: []string{"versorgung", "utility", "entsorgung"}},
		},
		Geometry: GeometryRules{
			Point:   []string{"punkt", "point", "adresse", "address", "hauskoordinate", "haltestelle", "standort"},
			Line:    []string{"linie", "linestring", "straße", "strasse", "street", "road", "achse", "netz", "fluss", "river", "kante"},
			Polygon: []string{"fläche", "flaeche", "polygon", "parcel", "flurst", "gebäude", "gebaeude", "building", "gebiet", "area", "grenze", "boundary"},
		},
	}
}

// LoadRules decodes YAML rules from r. Sections left empty in the file keep
// their defaults.
func LoadRules(r io.Reader) (Rules, error) {
	var loaded Rules
	if err := yaml.NewDecoder(r).Decode(&loaded); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	rules := loaded.withDefaults()
	if err := rules.validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

func (r Rules) withDefaults() Rules {
	def := DefaultRules()
	if len(r.Keywords) == 0 {
		r.Keywords = def.Keywords
	}
	if len(r.InspireThemes) == 0 {
		r.InspireThemes = def.InspireThemes
	}
	if len(r.Geometry.Point)+len(r.Geometry.Line)+len(r.Geometry.Polygon) == 0 {
		r.Geometry = def.Geometry
	}
	return r
}

func (r Rules) validate() error {
	for _, table := range [][]TermRule{r.Keywords, r.InspireThemes} {
		for i, rule := range table {
			if strings.TrimSpace(rule.Label) == "" {
				return fmt.Errorf("%w: rule %d has no label", ErrInvalidRules, i)
			}
			if len(rule.Patterns) == 0 {
				return fmt.Errorf("%w: rule %q has no patterns", ErrInvalidRules, rule.Label)
			}
		}
	}
	return nil
}
