// Package geo canonicalizes free-text country names.
package geo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unknown is the canonical name for a missing country.
const Unknown = "Unknown"

var keyCleaner = strings.NewReplacer("(", "", ")", "", ".", "", ",", "", "'", "")

// aliases maps normalized keys to canonical display names.
var aliases = map[string]string{
	"usa":                              "United States",
	"us":                               "United States",
	"united states of america":         "United States",
	"uk":                               "United Kingdom",
	"great britain":                    "United Kingdom",
	"england":                          "United Kingdom",
	"uae":                              "United Arab Emirates",
	"ksa":                              "Saudi Arabia",
	"drc":                              "Democratic Republic of the Congo",
	"dr congo":                         "Democratic Republic of the Congo",
	"congo dr":                         "Democratic Republic of the Congo",
	"congo kinshasa":                   "Democratic Republic of the Congo",
	"democratic republic of congo":     "Democratic Republic of the Congo",
	"zaire":                            "Democratic Republic of the Congo",
	"congo brazzaville":                "Republic of the Congo",
	"ivory coast":                      "Cote d'Ivoire",
	"cote divoire":                     "Cote d'Ivoire",
	"tanzania united republic of":      "Tanzania",
	"united republic of tanzania":      "Tanzania",
	"swaziland":                        "Eswatini",
	"burma":                            "Myanmar",
	"south korea":                      "South Korea",
	"korea republic of":                "South Korea",
	"republic of korea":                "South Korea",
	"russian federation":               "Russia",
	"viet nam":                         "Vietnam",
	"iran islamic republic of":         "Iran",
	"syrian arab republic":             "Syria",
	"lao pdr":                          "Laos",
	"cape verde":                       "Cabo Verde",
	"the gambia":                       "Gambia",
	"gambia the":                       "Gambia",
	"sao tome":                         "Sao Tome and Principe",
	"holland":                          "Netherlands",
	"the netherlands":                  "Netherlands",
	"hong kong sar":                    "Hong Kong",
	"turkiye":                          "Turkey",
	"republic of south africa":         "South Africa",
	"rsa":                              "South Africa",
	"bosnia":                           "Bosnia and Herzegovina",
	"macedonia":                        "North Macedonia",
	"czechia":                          "Czech Republic",
	"east timor":                       "Timor-Leste",
	"bolivia plurinational state of":   "Bolivia",
	"venezuela bolivarian republic of": "Venezuela",
}

// NormalizeKey trims, lowercases, strips ( ) . , ' and collapses whitespace.
func NormalizeKey(name string) string {
	key := keyCleaner.Replace(strings.ToLower(strings.TrimSpace(name)))
	return strings.Join(strings.Fields(key), " ")
}

// CanonicalCountry maps a free-text country to its display form: an alias
// hit, otherwise the title-cased tokens of the trimmed input.  Empty input
// maps to Unknown.
func CanonicalCountry(name string) string {
	trimmed := strings.TrimSpace(name)
	key := NormalizeKey(trimmed)
	if key == "" {
		return Unknown
	}
	if canonical, ok := aliases[key]; ok {
		return canonical
	}
	caser := cases.Title(language.English)
	tokens := strings.Fields(trimmed)
	for i, tok := range tokens {
		tokens[i] = caser.String(tok)
	}
	return strings.Join(tokens, " ")
}
