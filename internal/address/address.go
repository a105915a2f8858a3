// Package address derives a coarse city label from free-text postal addresses.
// Parsing is best effort; malformed input produces sentinels, not errors.
package address

import (
	"regexp"
	"strings"
)

const (
	// Unknown is returned for an empty address.
	Unknown = "unknown"
	// UnrecognizedZone is returned when no city token can be found.
	UnrecognizedZone = "unrecognized zone"

	minCityLength = 2
)

var (
	postalCity       = regexp.MustCompile(`\b\d{5}\s+([^,\d]+)`)
	postalCode       = regexp.MustCompile(`\b\d{5}\b`)
	provinceParen    = regexp.MustCompile(`\(\s*[A-Za-z]{2}\s*\)`)
	trailingProvince = regexp.MustCompile(`\s+[A-Z]{2}$`)
	numericToken     = regexp.MustCompile(`^[\d\s/.-]*$`)
	spaces           = regexp.MustCompile(`\s+`)
)

// ExtractCity returns the city named in address.
func ExtractCity(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return Unknown
	}

	if m := postalCity.FindStringSubmatch(address); m != nil {
		if city := cleanCity(m[1]); len(city) > minCityLength {
			return city
		}
	}

	// The first segment is the street; a lone segment names no city.
	parts := strings.Split(address, ",")
	for i := len(parts) - 1; i > 0; i-- {
		token := cleanCity(postalCode.ReplaceAllString(parts[i], ""))
		if numericToken.MatchString(token) {
			continue
		}
		if len(token) > minCityLength {
			return token
		}
	}

	return UnrecognizedZone
}

// cleanCity strips province markers and collapses whitespace.
func cleanCity(s string) string {
	s = provinceParen.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	s = trailingProvince.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
