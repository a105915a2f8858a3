// Package brand maps free-text station names and operators to a fixed
// brand taxonomy.
package brand

import "strings"

// Unbranded is returned for independent stations with no recognizable brand.
const Unbranded = "unbranded"

const minOperatorLength = 2

// Rule maps a set of keywords to a brand. A rule fires when the combined
// upper-cased name and operator contains any of its keywords.
type Rule struct {
	Keywords []string
	Brand    string
}

// rules are evaluated in order and the first match wins. "IP " keeps its
// trailing space so operator names merely containing the letters do not match.
var rules = []Rule{
	{Keywords: []string{"ENI", "AGIP"}, Brand: "Eni"},
	{Keywords: []string{"Q8", "KUWAIT"}, Brand: "Q8"},
	{Keywords: []string{"ESSO"}, Brand: "Esso"},
	{Keywords: []string{"IP ", "GRUPPO API"}, Brand: "IP"},
	{Keywords: []string{"TAMOIL"}, Brand: "Tamoil"},
	{Keywords: []string{"SHELL"}, Brand: "Shell"},
	{Keywords: []string{"TOTAL", "ERG"}, Brand: "TotalErg"},
	{Keywords: []string{"REPSOL"}, Brand: "Repsol"},
	{Keywords: []string{"SARNI"}, Brand: "Sarni"},
	{Keywords: []string{"CONAD"}, Brand: "Conad"},
	{Keywords: []string{"COOP"}, Brand: "Enercoop"},
	{Keywords: []string{"COSTANTIN"}, Brand: "Costantin"},
	{Keywords: []string{"VEGA"}, Brand: "Vega"},
}

var logos = map[string]string{
	"Eni":      "https://cdn.brandfetch.io/id07a97M3H/theme/dark/symbol.svg?c=1bxid64Mup7aczewSAYMX&t=1749533701893",
	"Q8":       "https://upload.wikimedia.org/wikipedia/commons/thumb/a/ae/Q8_logo.svg/200px-Q8_logo.svg.png",
	"Esso":     "https://upload.wikimedia.org/wikipedia/commons/thumb/2/22/Esso_text_logo.svg/200px-Esso_text_logo.svg.png",
	"IP":       "https://upload.wikimedia.org/wikipedia/commons/thumb/6/67/IP_Gruppo_API_logo.svg/200px-IP_Gruppo_API_logo.svg.png",
	"Tamoil":   "https://upload.wikimedia.org/wikipedia/commons/thumb/e/e0/Tamoil_logo.svg/200px-Tamoil_logo.svg.png",
	"Shell":    "https://upload.wikimedia.org/wikipedia/en/thumb/e/e8/Shell_logo.svg/200px-Shell_logo.svg.png",
	"TotalErg": "https://upload.wikimedia.org/wikipedia/en/thumb/9/9b/Total_S.A._logo.svg/200px-Total_S.A._logo.svg.png",
	"Repsol":   "https://upload.wikimedia.org/wikipedia/commons/thumb/d/d5/Repsol_logo.svg/200px-Repsol_logo.svg.png",
}

// Classify returns the brand for a station name and operator. It never fails:
// unknown operators longer than two characters pass through verbatim, anything
// else is Unbranded.
func Classify(rawName, rawOperator string) string {
	text := strings.ToUpper(rawName + " " + rawOperator)
	for _, rule := range rules {
		if rule.matches(text) {
			return rule.Brand
		}
	}

	if len(rawOperator) > minOperatorLength {
		return rawOperator
	}
	return Unbranded
}

// Rules returns a copy of the ordered rule list.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Keywords: append([]string(nil), r.Keywords...), Brand: r.Brand}
	}
	return out
}

// Logo returns the logo URL for a known brand.
func Logo(brand string) (string, bool) {
	url, ok := logos[brand]
	return url, ok
}

func (r Rule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
