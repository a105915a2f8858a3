package station

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/rubiojr/carburanti/internal/translations"
)

// FuelType selects which price a station query and ranking operate on.
type FuelType string

const (
	Diesel   FuelType = "diesel"
	Unleaded FuelType = "unleaded"
	LPG      FuelType = "lpg"
	CNG      FuelType = "cng"
)

// ErrUnknownFuel is returned by ParseFuel for unsupported fuel names.
var ErrUnknownFuel = errors.New("unknown fuel type")

var fuelAPICodes = map[FuelType]string{
	Diesel:   "gasolio",
	Unleaded: "benzina",
	LPG:      "gpl",
	CNG:      "metano",
}

var fuelAliases = map[string]FuelType{
	"diesel":   Diesel,
	"gasolio":  Diesel,
	"unleaded": Unleaded,
	"petrol":   Unleaded,
	"benzina":  Unleaded,
	"lpg":      LPG,
	"gpl":      LPG,
	"cng":      CNG,
	"metano":   CNG,
}

// Fuels returns all supported fuel types in display order.
func Fuels() []FuelType {
	return []FuelType{Diesel, Unleaded, LPG, CNG}
}

// ParseFuel accepts fuel keys, upstream codes and common aliases.
func ParseFuel(s string) (FuelType, error) {
	if f, ok := fuelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, nil
	}
	return "", errors.Wrapf(ErrUnknownFuel, "%q", s)
}

// Valid reports whether f is a supported fuel type.
func (f FuelType) Valid() bool {
	_, ok := fuelAPICodes[f]
	return ok
}

// APICode returns the upstream feed code for the fuel.
func (f FuelType) APICode() string {
	return fuelAPICodes[f]
}

// Label returns the localized display name of the fuel.
func (f FuelType) Label(lang string) string {
	t := translations.GetTranslations(lang)
	switch f {
	case Diesel:
		return t.Diesel
	case Unleaded:
		return t.Unleaded
	case LPG:
		return t.LPG
	case CNG:
		return t.CNG
	default:
		return string(f)
	}
}
