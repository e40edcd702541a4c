package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/02loveslollipop/wfs-catalog/internal/textfold"
	"github.com/02loveslollipop/wfs-catalog/pkg/capabilities"
)

// Method records which tier produced a region.
type Method string

const (
	MethodText    Method = "text"
	MethodDomain  Method = "domain"
	MethodBBox    Method = "bbox"
	MethodDefault Method = "default"
)

// Region is a country and subdivision assignment.
type Region struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Region      string `json:"region"`
	Method      Method `json:"method"`
}

// RegionInput is the evidence available for a service.
type RegionInput struct {
	Title    string
	Abstract string
	Provider string
	URL      string
	BBox     *capabilities.BBox
}

// Classifier applies a Policy.
type Classifier struct {
	policy    Policy
	countries map[string]CountryRule
	codes     map[string]*regexp.Regexp
}

// NewClassifier creates a Classifier; empty policy sections use defaults.
func NewClassifier(policy Policy) *Classifier {
	policy = policy.withDefaults()
	c := &Classifier{
		policy:    policy,
		countries: make(map[string]CountryRule, len(policy.Countries)),
		codes:     make(map[string]*regexp.Regexp),
	}
	for _, country := range policy.Countries {
		c.countries[country.Code] = country
		for _, region := range country.Regions {
			for _, code := range region.Codes {
				if _, ok := c.codes[code]; !ok {
					c.codes[code] = regexp.MustCompile(`\b` + regexp.QuoteMeta(code) + `\b`)
				}
			}
		}
	}
	return c
}

// Category returns the first category whose keywords occur in the name,
// title or abstract, or CategoryNone.
func (c *Classifier) Category(name, title, abstract string) Category {
	text := textfold.Join(name, title, abstract)
	for _, rule := range c.policy.Categories {
		if textfold.ContainsAny(text, rule.Keywords) {
			return rule.Category
		}
	}
	return CategoryNone
}

// Region infers country and region. Country indicators in the text come
// first and restrict region matching to that country. Without them, region
// names of any country are tried, then the URL's domain (which restricts
// region codes to its country), then region codes of any country, then the
// centre of the bounding box, and finally the configured default.
func (c *Classifier) Region(in RegionInput) Region {
	host := hostOf(in.URL)
	raw := strings.Join([]string{in.Title, in.Abstract, in.Provider}, " ")
	text := textfold.Join(in.Title, in.Abstract, in.Provider, host)

	if country, ok := c.indicated(text); ok {
		if r, ok := c.regionIn(country, text, raw, true); ok {
			return r
		}
		return c.countryOnly(country, MethodText)
	}
	for _, country := range c.policy.Countries {
		if r, ok := c.regionIn(country, text, raw, false); ok {
			return r
		}
	}
	if country, ok := c.byDomain(host); ok {
		if r, ok := c.regionIn(country, text, raw, true); ok {
			return r
		}
		return c.countryOnly(country, MethodDomain)
	}
	for _, country := range c.policy.Countries {
		if r, ok := c.regionIn(country, text, raw, true); ok {
			return r
		}
	}
	if in.BBox != nil {
		center := in.BBox.Center()
		for _, code := range c.policy.BBoxOrder {
			country := c.countries[code]
			if country.Envelope != nil && country.Envelope.Contains(center[0], center[1]) {
				return c.countryOnly(country, MethodBBox)
			}
		}
	}
	return c.countryOnly(c.countries[c.policy.DefaultCountry], MethodDefault)
}

// regionIn matches the country's region name patterns and, when withCodes
// is set, its region codes.
func (c *Classifier) regionIn(country CountryRule, text, raw string, withCodes bool) (Region, bool) {
	for _, region := range country.Regions {
		if textfold.ContainsAny(text, region.Patterns) || (withCodes && c.hasCode(raw, region.Codes)) {
			return Region{CountryCode: country.Code, CountryName: country.Name, Region: region.Name, Method: MethodText}, true
		}
	}
	return Region{}, false
}

func (c *Classifier) indicated(text string) (CountryRule, bool) {
	for _, country := range c.policy.Countries {
		if textfold.ContainsAny(text, country.Indicators) {
			return country, true
		}
	}
	return CountryRule{}, false
}

func (c *Classifier) byDomain(host string) (CountryRule, bool) {
	if host == "" {
		return CountryRule{}, false
	}
	for _, country := range c.policy.Countries {
		for _, suffix := range country.Domains {
			if strings.HasSuffix(host, strings.ToLower(suffix)) {
				return country, true
			}
		}
	}
	return CountryRule{}, false
}

func (c *Classifier) countryOnly(country CountryRule, method Method) Region {
	return Region{CountryCode: country.Code, CountryName: country.Name, Region: c.policy.DefaultRegion, Method: method}
}

func (c *Classifier) hasCode(raw string, codes []string) bool {
	for _, code := range codes {
		if re, ok := c.codes[code]; ok && re.MatchString(raw) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
